// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package engine composes the authorization gate, the secure key-value
// store, the symmetric encryption manager and the threat heuristics behind
// one entry point. The engine is an explicit value constructed once at
// process start and passed to callers; there is no package-level singleton.
// It is a pure composition layer: components never call back into it, and
// the store and the encryption manager remain independent secret domains.
package engine

import (
	"context"
	"fmt"

	"github.com/toeirei/sentinel/internal/authgate"
	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/crypto"
	"github.com/toeirei/sentinel/internal/keystore"
	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
	"github.com/toeirei/sentinel/internal/threat"
)

// passcodeIdentifier is the reserved store identifier for the enrolled
// device passcode digest.
const passcodeIdentifier = "sentinel.device-passcode"

// Engine is the security facade.
type Engine struct {
	cfg      config.Config
	store    keystore.Store
	manager  *crypto.Manager
	gate     *authgate.Gate
	detector *threat.Detector
}

// New composes an Engine from an opened store and a platform challenger.
// The challenger may be nil; authentication is then reported unavailable.
func New(cfg config.Config, store keystore.Store, challenger authgate.Challenger) (*Engine, error) {
	manager, err := crypto.NewManager(cfg.KeyManagement)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryption manager: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		manager:  manager,
		gate:     authgate.New(challenger, cfg.Biometric),
		detector: threat.New(cfg.ThreatDetection),
	}, nil
}

// Configure replaces the engine's settings wholesale and propagates the
// sub-configurations to each component. Components pick the new values up
// on their next operation; operations already in flight are unaffected.
func (e *Engine) Configure(cfg config.Config) error {
	if err := e.manager.Configure(cfg.KeyManagement); err != nil {
		return err
	}
	e.gate.Configure(cfg.Biometric)
	e.detector.Configure(cfg.ThreatDetection)
	e.cfg = cfg
	return nil
}

// Config returns the current settings value.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// StoreSecret upserts a secret in the protected store.
func (e *Engine) StoreSecret(ctx context.Context, identifier string, value security.Secret, level model.AccessLevel) error {
	return e.store.Put(ctx, identifier, value, level)
}

// RetrieveSecret reads a secret from the protected store.
func (e *Engine) RetrieveSecret(ctx context.Context, identifier string) (security.Secret, error) {
	return e.store.Get(ctx, identifier)
}

// DeleteSecret removes a secret from the protected store.
func (e *Engine) DeleteSecret(ctx context.Context, identifier string) error {
	return e.store.Delete(ctx, identifier)
}

// Encrypt seals plaintext under the per-identifier key.
func (e *Engine) Encrypt(plaintext []byte, keyIdentifier string) (model.EncryptedPayload, error) {
	return e.manager.Encrypt(plaintext, keyIdentifier)
}

// Decrypt verifies and opens a payload.
func (e *Engine) Decrypt(payload model.EncryptedPayload) ([]byte, error) {
	return e.manager.Decrypt(payload)
}

// GenerateSecureRandom returns count cryptographically secure random bytes.
func (e *Engine) GenerateSecureRandom(count int) []byte {
	return crypto.GenerateSecureRandom(count)
}

// CheckAvailability reports whether an authentication challenge can be
// presented right now. Synchronous, never errors.
func (e *Engine) CheckAvailability() model.BiometryAvailability {
	return e.gate.CheckAvailability()
}

// Authenticate presents the platform challenge with the given reason and
// records the outcome in the audit trail.
func (e *Engine) Authenticate(ctx context.Context, reason string) (bool, error) {
	ok, err := e.gate.Authenticate(ctx, reason)
	switch {
	case err != nil:
		_ = e.store.LogAction("AUTH_ERROR", fmt.Sprintf("reason: %s, error: %v", reason, err))
	case ok:
		_ = e.store.LogAction("AUTH_SUCCESS", fmt.Sprintf("reason: %s", reason))
	default:
		_ = e.store.LogAction("AUTH_DENIED", fmt.Sprintf("reason: %s", reason))
	}
	return ok, err
}

// DetectThreats runs the configured heuristics and returns the findings.
func (e *Engine) DetectThreats() []model.SecurityThreat {
	threats := e.detector.DetectThreats()
	_ = e.store.LogAction("THREAT_SCAN", fmt.Sprintf("findings: %d", len(threats)))
	return threats
}

// EnrollPasscode stores the digest of the device passcode. The digest is a
// regular record under a reserved identifier; it never leaves the device.
func (e *Engine) EnrollPasscode(ctx context.Context, passcode []byte) error {
	digest := authgate.HashPasscode(passcode)
	return e.store.Put(ctx, passcodeIdentifier, digest, model.AfterFirstUnlockThisDeviceOnly)
}

// VerifyPasscode compares a candidate digest against the enrolled one.
func (e *Engine) VerifyPasscode(digest security.Secret) (bool, error) {
	enrolled, err := e.store.Get(context.Background(), passcodeIdentifier)
	if err != nil {
		return false, fmt.Errorf("no usable passcode enrollment: %w", err)
	}
	return enrolled.Equal(digest), nil
}

// Unlock marks the device unlocked. The lock state belongs to the platform,
// not to this core; these transitions exist so the facility's access-level
// enforcement can be driven and tested.
func (e *Engine) Unlock(ctx context.Context) error {
	return e.store.SetUnlockState(ctx, model.Unlocked)
}

// Lock marks the device locked again. A device that has been unlocked
// since boot keeps its first-unlock availability window.
func (e *Engine) Lock(ctx context.Context) error {
	state, err := e.store.UnlockState(ctx)
	if err != nil {
		return err
	}
	next := model.Locked
	if state == model.Unlocked || state == model.UnlockedOnce {
		next = model.UnlockedOnce
	}
	return e.store.SetUnlockState(ctx, next)
}

// UnlockState reports the persisted device unlock state.
func (e *Engine) UnlockState(ctx context.Context) (model.UnlockState, error) {
	return e.store.UnlockState(ctx)
}

// AuditLog returns the audit trail, most recent first.
func (e *Engine) AuditLog() ([]model.AuditLogEntry, error) {
	return e.store.GetAllAuditLogEntries()
}

// ExportBackup collects the exportable records and the audit log.
func (e *Engine) ExportBackup(ctx context.Context) (*model.BackupData, error) {
	return e.store.ExportDataForBackup(ctx)
}

// ImportBackup upserts records from a backup into the store.
func (e *Engine) ImportBackup(ctx context.Context, backup *model.BackupData) error {
	return e.store.ImportDataFromBackup(ctx, backup)
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}
