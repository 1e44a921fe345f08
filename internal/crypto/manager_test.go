// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.
package crypto

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/model"
)

func newTestManager(t *testing.T, algorithm string) *Manager {
	t.Helper()
	m, err := NewManager(config.KeyManagementConfig{Algorithm: algorithm})
	if err != nil {
		t.Fatalf("NewManager(%q) failed: %v", algorithm, err)
	}
	return m
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	for _, algorithm := range []string{"aes-gcm", "xchacha20-poly1305"} {
		t.Run(algorithm, func(t *testing.T) {
			m := newTestManager(t, algorithm)
			plaintext := []byte("the eagle has landed")

			payload, err := m.Encrypt(plaintext, "mission-key")
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if payload.KeyIdentifier != "mission-key" {
				t.Fatalf("key identifier = %q, want mission-key", payload.KeyIdentifier)
			}
			if len(payload.Tag) != 16 {
				t.Fatalf("tag length = %d, want 16", len(payload.Tag))
			}

			got, err := m.Decrypt(payload)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Fatalf("roundtrip mismatch: got %q", got)
			}
		})
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	payload, err := m.Encrypt(nil, "empty")
	if err != nil {
		t.Fatalf("Encrypt(nil) failed: %v", err)
	}
	got, err := m.Decrypt(payload)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty plaintext, got %d bytes", len(got))
	}
}

func TestAESGCMNonceSize(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	payload, err := m.Encrypt([]byte("x"), "k")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(payload.Nonce) != 12 {
		t.Fatalf("aes-gcm nonce length = %d, want 12", len(payload.Nonce))
	}
}

func TestNonceFreshnessPerCall(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	plaintext := []byte("identical input")

	first, err := m.Encrypt(plaintext, "same-key")
	if err != nil {
		t.Fatalf("first Encrypt failed: %v", err)
	}
	second, err := m.Encrypt(plaintext, "same-key")
	if err != nil {
		t.Fatalf("second Encrypt failed: %v", err)
	}
	if bytes.Equal(first.Nonce, second.Nonce) {
		t.Fatal("two encryptions under the same key reused a nonce")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Fatal("two encryptions of the same plaintext produced identical ciphertext")
	}
	if m.KeyCount() != 1 {
		t.Fatalf("key count = %d, want 1 (same identifier reuses the key)", m.KeyCount())
	}
}

// flipping any single bit of ciphertext, nonce or tag must fail
// verification rather than return altered plaintext.
func TestDecryptRejectsBitFlips(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	payload, err := m.Encrypt([]byte("integrity matters"), "bits")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	fields := map[string][]byte{
		"ciphertext": payload.Ciphertext,
		"nonce":      payload.Nonce,
		"tag":        payload.Tag,
	}
	for name, field := range fields {
		for i := range field {
			for bit := 0; bit < 8; bit++ {
				mutated := payload
				tampered := make([]byte, len(field))
				copy(tampered, field)
				tampered[i] ^= 1 << bit
				switch name {
				case "ciphertext":
					mutated.Ciphertext = tampered
				case "nonce":
					mutated.Nonce = tampered
				case "tag":
					mutated.Tag = tampered
				}
				if _, err := m.Decrypt(mutated); !errors.Is(err, ErrDecryptionFailed) {
					t.Fatalf("flipping %s byte %d bit %d: got %v, want ErrDecryptionFailed", name, i, bit, err)
				}
			}
		}
	}
}

func TestDecryptUnknownIdentifierFailsAsWrongKey(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	payload, err := m.Encrypt([]byte("secret"), "known")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	payload.KeyIdentifier = "never-seen"
	if _, err := m.Decrypt(payload); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("decrypt with unknown identifier: got %v, want ErrDecryptionFailed", err)
	}
	// The lookup creates a key for the unknown identifier; that is the
	// documented silent wrong-key behavior.
	if m.KeyCount() != 2 {
		t.Fatalf("key count = %d, want 2", m.KeyCount())
	}
}

func TestDecryptRejectsTruncatedFields(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	payload, err := m.Encrypt([]byte("shape"), "trunc")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	short := payload
	short.Nonce = payload.Nonce[:len(payload.Nonce)-1]
	if _, err := m.Decrypt(short); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("truncated nonce: got %v, want ErrDecryptionFailed", err)
	}

	short = payload
	short.Tag = payload.Tag[:len(payload.Tag)-1]
	if _, err := m.Decrypt(short); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("truncated tag: got %v, want ErrDecryptionFailed", err)
	}
}

// N concurrent first uses of the same identifier must agree on a single
// key: every goroutine's payload has to decrypt against every other's.
func TestConcurrentFirstUseCreatesOneKey(t *testing.T) {
	const workers = 32
	m := newTestManager(t, "aes-gcm")

	var wg sync.WaitGroup
	payloads := make([]model.EncryptedPayload, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p, err := m.Encrypt([]byte("racer"), "contested")
			if err != nil {
				t.Errorf("worker %d: Encrypt failed: %v", n, err)
				return
			}
			payloads[n] = p
		}(i)
	}
	wg.Wait()

	if m.KeyCount() != 1 {
		t.Fatalf("key count = %d, want exactly 1", m.KeyCount())
	}
	for i, p := range payloads {
		got, err := m.Decrypt(p)
		if err != nil {
			t.Fatalf("payload %d does not decrypt: %v", i, err)
		}
		if !bytes.Equal(got, []byte("racer")) {
			t.Fatalf("payload %d: unexpected plaintext %q", i, got)
		}
	}
}

func TestConfigureSwitchesAlgorithm(t *testing.T) {
	m := newTestManager(t, "aes-gcm")
	if err := m.Configure(config.KeyManagementConfig{Algorithm: "xchacha20-poly1305"}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	payload, err := m.Encrypt([]byte("switched"), "k")
	if err != nil {
		t.Fatalf("Encrypt after Configure failed: %v", err)
	}
	if len(payload.Nonce) != 24 {
		t.Fatalf("xchacha nonce length = %d, want 24", len(payload.Nonce))
	}
	if err := m.Configure(config.KeyManagementConfig{Algorithm: "rot13"}); err == nil {
		t.Fatal("Configure must reject unknown algorithms")
	}
}

func TestNewManagerRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := NewManager(config.KeyManagementConfig{Algorithm: "des"}); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
