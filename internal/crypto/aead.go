// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm selects the AEAD construction used by the encryption manager.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM with a 96-bit nonce and 128-bit tag.
	// This is the default.
	AlgorithmAESGCM Algorithm = "aes-gcm"
	// AlgorithmXChaCha is XChaCha20-Poly1305 with a 192-bit nonce and
	// 128-bit tag.
	AlgorithmXChaCha Algorithm = "xchacha20-poly1305"
)

// keySize is the symmetric key size in bytes. Both supported constructions
// take 256-bit keys.
const keySize = 32

// tagSize is the authentication tag size in bytes for both constructions.
const tagSize = 16

// aeadRegistry maps each algorithm to its cipher.AEAD constructor.
var aeadRegistry = map[Algorithm]func(key []byte) (cipher.AEAD, error){
	AlgorithmAESGCM: func(key []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("aes-gcm: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("aes-gcm: %w", err)
		}
		return aead, nil
	},
	AlgorithmXChaCha: func(key []byte) (cipher.AEAD, error) {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("xchacha20-poly1305: %w", err)
		}
		return aead, nil
	},
}

// ParseAlgorithm validates an algorithm name from configuration.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmAESGCM:
		return AlgorithmAESGCM, nil
	case AlgorithmXChaCha:
		return AlgorithmXChaCha, nil
	default:
		return AlgorithmAESGCM, fmt.Errorf("unknown encryption algorithm: %q", s)
	}
}
