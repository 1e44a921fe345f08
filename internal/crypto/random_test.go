// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.
package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSecureRandomLengthAndVariety(t *testing.T) {
	a := GenerateSecureRandom(32)
	b := GenerateSecureRandom(32)
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatal("two 32-byte draws were identical")
	}
}

func TestGenerateSecureRandomZeroCount(t *testing.T) {
	if got := GenerateSecureRandom(0); len(got) != 0 {
		t.Fatalf("expected empty slice, got %d bytes", len(got))
	}
}

// A failing secure RNG is unrecoverable: the fatal path must fire instead
// of returning weak bytes.
func TestGenerateSecureRandomFatalOnRNGFailure(t *testing.T) {
	origRead := randRead
	origFatal := fatalf
	defer func() {
		randRead = origRead
		fatalf = origFatal
	}()

	randRead = func([]byte) (int, error) {
		return 0, errors.New("entropy pool gone")
	}
	fired := false
	fatalf = func(format string, v ...interface{}) {
		fired = true
	}

	_ = GenerateSecureRandom(16)
	if !fired {
		t.Fatal("RNG failure must hit the fatal path")
	}
}
