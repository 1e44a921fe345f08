// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/sentinel/internal/i18n"
	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
)

// authorizeIfRequired presents the platform challenge before a sensitive
// store operation when the configuration demands it. Authorization lives at
// this boundary; the store itself only enforces the unlock-state gating.
func authorizeIfRequired(cmd *cobra.Command, reason string) error {
	if !appConfig.Biometric.RequireForSensitive {
		return nil
	}
	ok, err := app.Authenticate(cmd.Context(), reason)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(i18n.T("auth.denied"))
	}
	return nil
}

func newStoreCmd() *cobra.Command {
	var level string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "store <identifier> [value]",
		Short: "Store a secret in the protected store",
		Long: `Store a secret under an identifier. Storing under an existing
identifier overwrites both the value and the access level. With --stdin the
value is read from standard input so it does not land in shell history.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := args[0]

			accessLevel, err := model.ParseAccessLevel(level)
			if err != nil {
				return err
			}

			var value security.Secret
			switch {
			case fromStdin:
				raw, err := readSecretInput("Value: ")
				if err != nil {
					return err
				}
				value = security.FromBytes(raw)
				for i := range raw {
					raw[i] = 0
				}
			case len(args) == 2:
				value = security.FromString(args[1])
			default:
				return errors.New("provide a value argument or --stdin")
			}
			defer value.Zero()

			if err := authorizeIfRequired(cmd, fmt.Sprintf("store secret %q", identifier)); err != nil {
				return err
			}

			if err := app.StoreSecret(cmd.Context(), identifier, value, accessLevel); err != nil {
				return err
			}
			fmt.Println(i18n.T("cli.stored", identifier, accessLevel))
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "access-level", "l", model.WhenUnlocked.String(),
		"Access level: when_unlocked, after_first_unlock, when_unlocked_this_device_only, after_first_unlock_this_device_only")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the value from standard input")
	return cmd
}

func newRetrieveCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "retrieve <identifier>",
		Short: "Retrieve a secret from the protected store",
		Long: `Retrieve a secret by identifier. Retrieval fails while the device
lock state does not satisfy the record's access level. By default the value
goes to stdout with a trailing newline; --raw omits the newline for piping.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := args[0]

			if err := authorizeIfRequired(cmd, fmt.Sprintf("retrieve secret %q", identifier)); err != nil {
				return err
			}

			value, err := app.RetrieveSecret(cmd.Context(), identifier)
			if err != nil {
				return err
			}
			defer value.Zero()

			out := value.Bytes()
			defer func() {
				for i := range out {
					out[i] = 0
				}
			}()
			if raw {
				_, err = os.Stdout.Write(out)
				return err
			}
			fmt.Fprintln(os.Stderr, i18n.T("cli.retrieved", identifier))
			fmt.Printf("%s\n", out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Write the bare value without a trailing newline")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <identifier>",
		Short: "Delete a secret from the protected store",
		Long:  "Delete a secret by identifier. Deleting a missing record succeeds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := args[0]
			if err := authorizeIfRequired(cmd, fmt.Sprintf("delete secret %q", identifier)); err != nil {
				return err
			}
			if err := app.DeleteSecret(cmd.Context(), identifier); err != nil {
				return err
			}
			fmt.Println(i18n.T("cli.deleted", identifier))
			return nil
		},
	}
}

func newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Mark the device as locked",
		Long: `Mark the device lock state as locked. A device that has been
unlocked since boot keeps its first-unlock availability window, so records
stored as after_first_unlock stay retrievable until the state is reset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Lock(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(i18n.T("cli.device_locked"))
			return nil
		},
	}
}

func newUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Mark the device as unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Unlock(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(i18n.T("cli.device_unlocked"))
			return nil
		},
	}
}

func newEnrollPasscodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll-passcode",
		Short: "Enroll the device passcode used for fallback authentication",
		Long: `Prompt for a passcode twice and store its digest in the protected
store. The digest is device-bound: it never appears in backup exports. The
passcode is what the auth command falls back to when no biometric sensor is
present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := readSecretInput("New passcode: ")
			if err != nil {
				return err
			}
			defer func() {
				for i := range first {
					first[i] = 0
				}
			}()

			second, err := readSecretInput("Repeat passcode: ")
			if err != nil {
				return err
			}
			defer func() {
				for i := range second {
					second[i] = 0
				}
			}()

			if !security.FromBytes(first).Equal(security.FromBytes(second)) {
				return errors.New("passcodes do not match")
			}
			if len(first) == 0 {
				return errors.New("passcode must not be empty")
			}

			if err := app.EnrollPasscode(cmd.Context(), first); err != nil {
				return err
			}
			fmt.Println("Passcode enrolled.")
			return nil
		},
	}
}

// readSecretInput reads a line without echo when stdin is a terminal and
// falls back to a plain buffered read when it is not (pipes, tests).
func readSecretInput(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return value, err
	}

	var value []byte
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			value = append(value, buf[0])
		}
		if err != nil {
			if len(value) > 0 {
				break
			}
			return nil, err
		}
	}
	return value, nil
}
