// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package crypto implements the symmetric encryption manager: a
// concurrency-safe cache of per-identifier 256-bit keys and authenticated
// encryption/decryption over them. Keys live only in process memory; the
// secure key-value store is a separate secret domain and never shares keys
// with this package.
package crypto

import (
	"errors"
	"fmt"
	"sync"

	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/model"
)

// ErrEncryptionFailed is returned when sealing a plaintext fails.
var ErrEncryptionFailed = errors.New("encryption failed")

// ErrDecryptionFailed is returned when tag verification fails: tampered
// ciphertext, a wrong key, or a corrupted nonce all look the same from the
// outside. No partial plaintext is ever released.
var ErrDecryptionFailed = errors.New("decryption failed")

// Manager owns the in-memory key cache and performs AEAD operations. All
// methods are safe for concurrent use; the cache guarantees exactly one key
// is ever created per identifier.
type Manager struct {
	mu        sync.RWMutex
	keys      map[string][]byte
	algorithm Algorithm
}

// NewManager builds a Manager for the configured algorithm.
func NewManager(cfg config.KeyManagementConfig) (*Manager, error) {
	alg, err := ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Manager{
		keys:      make(map[string][]byte),
		algorithm: alg,
	}, nil
}

// Configure switches the AEAD algorithm for subsequent operations. Cached
// keys are retained: both constructions take 256-bit keys, and payloads
// sealed under the old algorithm stay decryptable only under it, which is
// the caller's bookkeeping just like the key identifier itself.
func (m *Manager) Configure(cfg config.KeyManagementConfig) error {
	alg, err := ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.algorithm = alg
	m.mu.Unlock()
	return nil
}

// getOrCreate returns the key for the identifier, generating it on first
// use. The double-checked locking keeps cache hits contention-free while
// guaranteeing that two concurrent first uses agree on a single key.
func (m *Manager) getOrCreate(identifier string) []byte {
	m.mu.RLock()
	key, ok := m.keys[identifier]
	m.mu.RUnlock()
	if ok {
		return key
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.keys[identifier]; ok {
		return key
	}
	key = GenerateSecureRandom(keySize)
	m.keys[identifier] = key
	return key
}

// KeyCount reports how many keys the cache currently holds.
func (m *Manager) KeyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// currentAlgorithm snapshots the algorithm under the read lock.
func (m *Manager) currentAlgorithm() Algorithm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.algorithm
}

// Encrypt seals plaintext under the key for keyIdentifier, creating the key
// on first use. Every call draws a fresh random nonce; nonce values are
// never reused for a given key.
func (m *Manager) Encrypt(plaintext []byte, keyIdentifier string) (model.EncryptedPayload, error) {
	newAEAD, ok := aeadRegistry[m.currentAlgorithm()]
	if !ok {
		return model.EncryptedPayload{}, fmt.Errorf("%w: no such algorithm", ErrEncryptionFailed)
	}
	aead, err := newAEAD(m.getOrCreate(keyIdentifier))
	if err != nil {
		return model.EncryptedPayload{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := GenerateSecureRandom(aead.NonceSize())
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	// cipher.AEAD appends the tag to the ciphertext; the payload carries
	// them as separate fields.
	split := len(sealed) - tagSize
	return model.EncryptedPayload{
		Ciphertext:    sealed[:split:split],
		Nonce:         nonce,
		Tag:           sealed[split:],
		KeyIdentifier: keyIdentifier,
	}, nil
}

// Decrypt verifies and opens a payload. The key is looked up by the
// payload's identifier and created if absent, so an unknown identifier
// fails tag verification like any wrong key would. Verification failure
// never leaks partial plaintext.
func (m *Manager) Decrypt(payload model.EncryptedPayload) ([]byte, error) {
	newAEAD, ok := aeadRegistry[m.currentAlgorithm()]
	if !ok {
		return nil, fmt.Errorf("%w: no such algorithm", ErrDecryptionFailed)
	}
	aead, err := newAEAD(m.getOrCreate(payload.KeyIdentifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(payload.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: malformed nonce", ErrDecryptionFailed)
	}
	if len(payload.Tag) != tagSize {
		return nil, fmt.Errorf("%w: malformed tag", ErrDecryptionFailed)
	}

	sealed := make([]byte, 0, len(payload.Ciphertext)+len(payload.Tag))
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.Tag...)

	plaintext, err := aead.Open(nil, payload.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication tag mismatch", ErrDecryptionFailed)
	}
	return plaintext, nil
}
