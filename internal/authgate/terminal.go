// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package authgate

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
	"golang.org/x/term"
)

// TerminalChallenger is the passcode fallback path on machines without a
// biometric sensor: it prompts on the controlling terminal and verifies the
// entered passcode against a stored digest. It reports BiometryNone, so
// authenticating through it requires AllowFallback to be enabled.
type TerminalChallenger struct {
	// Verify checks a passcode digest against the enrolled one. Wired up
	// by the engine, which keeps the enrolled digest in the secure store.
	Verify func(digest security.Secret) (bool, error)
	// input/output default to the process terminal; tests swap them.
	InputFD int
	Output  *os.File
}

// NewTerminalChallenger builds a challenger on the process terminal.
func NewTerminalChallenger(verify func(security.Secret) (bool, error)) *TerminalChallenger {
	return &TerminalChallenger{
		Verify:  verify,
		InputFD: int(os.Stdin.Fd()),
		Output:  os.Stderr,
	}
}

// Availability reports whether the terminal can prompt at all. There is no
// biometric sensor on this path, only the passcode challenge.
func (t *TerminalChallenger) Availability() model.BiometryAvailability {
	if !term.IsTerminal(t.InputFD) {
		return model.BiometryAvailability{
			Available: false,
			Kind:      model.BiometryNone,
			Reason:    "standard input is not a terminal",
		}
	}
	if t.Verify == nil {
		return model.BiometryAvailability{
			Available: false,
			Kind:      model.BiometryNone,
			Reason:    "no passcode enrolled",
		}
	}
	return model.BiometryAvailability{Available: true, Kind: model.BiometryNone}
}

// PresentChallenge prompts for the device passcode. The reason string is
// shown to the user verbatim; the read blocks until the user answers.
func (t *TerminalChallenger) PresentChallenge(ctx context.Context, reason string, allowFallback bool) (bool, error) {
	if !allowFallback {
		// This challenger IS the fallback; without it there is nothing to present.
		return false, errors.New("no biometric sensor present and passcode fallback is disabled")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(t.Output, "%s\nPasscode: ", reason)
	passcode, err := term.ReadPassword(t.InputFD)
	fmt.Fprintln(t.Output)
	if err != nil {
		return false, fmt.Errorf("passcode entry cancelled: %w", err)
	}
	defer func() {
		for i := range passcode {
			passcode[i] = 0
		}
	}()

	digest := sha256.Sum256(passcode)
	ok, err := t.Verify(security.FromBytes(digest[:]))
	if err != nil {
		return false, err
	}
	return ok, nil
}

// HashPasscode derives the stored digest for a passcode. Enrollment and
// verification must agree on this derivation.
func HashPasscode(passcode []byte) security.Secret {
	digest := sha256.Sum256(passcode)
	return security.FromBytes(digest[:])
}
