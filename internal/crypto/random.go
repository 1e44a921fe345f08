// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package crypto

import (
	"crypto/rand"

	"github.com/toeirei/sentinel/internal/logging"
)

// randRead allows tests to simulate a failing secure random source.
var randRead = rand.Read

// fatalf terminates the process; swapped out in tests to observe the
// RNG-unavailable path without exiting.
var fatalf = logging.Fatalf

// GenerateSecureRandom returns count bytes from the platform's
// cryptographically secure random source. A failing secure RNG is the one
// unrecoverable condition in Sentinel: any fallback would silently weaken
// every key and nonce, so the process terminates instead.
func GenerateSecureRandom(count int) []byte {
	buf := make([]byte, count)
	if _, err := randRead(buf); err != nil {
		fatalf("secure random source unavailable: %v", err)
		return nil
	}
	return buf
}
