// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package authgate wraps the device-provided biometric/passcode challenge.
// The gate itself is stateless aside from its configuration: it asks the
// platform whether a challenge can be presented, presents one with a
// human-readable reason, and reports the explicit user decision.
package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/model"
)

// ErrBiometricFailed is returned when the platform reports an error while
// presenting a challenge: user cancellation, lockout, or no enrolled
// biometric. It is distinct from an explicit denial (false, nil) so callers
// can tell "denied" from "unusable".
var ErrBiometricFailed = errors.New("biometric authentication failed")

// Challenger is the platform boundary: it presents a challenge UI with the
// given justification and reports the user's decision. PresentChallenge
// blocks until the user responds or the platform cancels; the gate imposes
// no cutoff of its own (the configured timeout is a policy hint only).
type Challenger interface {
	PresentChallenge(ctx context.Context, reason string, allowFallback bool) (bool, error)
	// Availability reports synchronously whether a challenge can currently
	// be presented and with which sensor class. It never blocks and never
	// fails.
	Availability() model.BiometryAvailability
}

// Gate is the authorization gate composed into the security engine.
type Gate struct {
	challenger Challenger
	cfg        config.BiometricConfig
}

// New builds a Gate around the given platform challenger.
func New(challenger Challenger, cfg config.BiometricConfig) *Gate {
	return &Gate{challenger: challenger, cfg: cfg}
}

// Configure replaces the gate's configuration. It takes effect on the next
// operation; a challenge already in flight is unaffected.
func (g *Gate) Configure(cfg config.BiometricConfig) {
	g.cfg = cfg
}

// CheckAvailability queries whether a challenge can currently be presented.
// It answers within the same call and never errors.
func (g *Gate) CheckAvailability() model.BiometryAvailability {
	if g.challenger == nil {
		return model.BiometryAvailability{Available: false, Kind: model.BiometryNone, Reason: "no platform challenger configured"}
	}
	return g.challenger.Availability()
}

// Authenticate presents a challenge with the given justification string and
// blocks until the user responds or the platform cancels. It returns true
// only on an explicit successful authentication; a platform-side failure
// surfaces as ErrBiometricFailed with the platform's message.
func (g *Gate) Authenticate(ctx context.Context, reason string) (bool, error) {
	avail := g.CheckAvailability()
	if !avail.Available {
		return false, fmt.Errorf("%w: %s", ErrBiometricFailed, avail.Reason)
	}

	ok, err := g.challenger.PresentChallenge(ctx, reason, g.cfg.AllowFallback)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBiometricFailed, err)
	}
	return ok, nil
}
