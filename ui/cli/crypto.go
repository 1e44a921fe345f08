// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/toeirei/sentinel/internal/model"
)

func newEncryptCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "encrypt <key-identifier> [plaintext]",
		Short: "Encrypt data under a named key",
		Long: `Seal plaintext under the per-identifier key of the encryption
manager. The first use of an identifier creates its key. Output is a JSON
payload carrying the ciphertext, nonce, tag and key identifier; every field
must be preserved bit-for-bit or decryption will fail.

Keys live only in process memory. A payload is decryptable by the same
process that sealed it, or by a host application that keeps the manager
alive across calls; this command exists to exercise and inspect the sealing
format.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyIdentifier := args[0]

			var plaintext []byte
			var err error
			if len(args) == 2 {
				plaintext = []byte(args[1])
			} else {
				plaintext, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("could not read plaintext from stdin: %w", err)
				}
			}

			payload, err := app.Encrypt(plaintext, keyIdentifier)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			if outPath != "" {
				return os.WriteFile(outPath, data, 0600)
			}
			fmt.Printf("%s\n", data)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the payload JSON to a file instead of stdout")
	return cmd
}

func newDecryptCmd() *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a payload produced by encrypt",
		Long: `Verify and open a JSON payload. Any modification of the
ciphertext, nonce or tag makes decryption fail; the error does not say which
field was wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if inPath != "" {
				data, err = os.ReadFile(inPath)
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("could not read payload: %w", err)
			}

			payload, err := decodePayload(data)
			if err != nil {
				return err
			}

			plaintext, err := app.Decrypt(payload)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(plaintext)
			return err
		},
	}

	cmd.Flags().StringVarP(&inPath, "input", "i", "", "Read the payload JSON from a file instead of stdin")
	return cmd
}

// decodePayload parses the JSON sealing format and rejects payloads that
// are structurally incomplete before they reach the manager.
func decodePayload(data []byte) (model.EncryptedPayload, error) {
	var payload model.EncryptedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("malformed payload JSON: %w", err)
	}
	if payload.KeyIdentifier == "" {
		return payload, errors.New("payload is missing the key identifier")
	}
	return payload, nil
}

func newRandomCmd() *cobra.Command {
	var asHex bool

	cmd := &cobra.Command{
		Use:   "random <count>",
		Short: "Generate cryptographically secure random bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative integer, got %q", args[0])
			}

			random := app.GenerateSecureRandom(count)
			if asHex {
				fmt.Println(hex.EncodeToString(random))
				return nil
			}
			_, err = os.Stdout.Write(random)
			return err
		},
	}

	cmd.Flags().BoolVar(&asHex, "hex", true, "Hex-encode the output (disable for raw bytes)")
	return cmd
}
