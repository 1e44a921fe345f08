// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.
package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/toeirei/sentinel/internal/authgate"
	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/keystore"
	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
)

type scriptedChallenger struct {
	avail    model.BiometryAvailability
	decision bool
	err      error
}

func (s *scriptedChallenger) Availability() model.BiometryAvailability { return s.avail }

func (s *scriptedChallenger) PresentChallenge(ctx context.Context, reason string, allowFallback bool) (bool, error) {
	return s.decision, s.err
}

func defaultConfig() config.Config {
	return config.Config{
		KeyManagement:   config.KeyManagementConfig{Algorithm: "aes-gcm"},
		ThreatDetection: config.ThreatDetectionConfig{AlertThreshold: "low"},
	}
}

func newTestEngine(t *testing.T, challenger authgate.Challenger) *Engine {
	t.Helper()
	store, err := keystore.New("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("keystore.New failed: %v", err)
	}
	e, err := New(defaultConfig(), store, challenger)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngineSecretLifecycle(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	if err := e.Unlock(ctx); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	if err := e.StoreSecret(ctx, "token", security.FromString("v"), model.WhenUnlocked); err != nil {
		t.Fatalf("StoreSecret failed: %v", err)
	}
	got, err := e.RetrieveSecret(ctx, "token")
	if err != nil {
		t.Fatalf("RetrieveSecret failed: %v", err)
	}
	if !bytes.Equal(got.Bytes(), []byte("v")) {
		t.Fatalf("unexpected value %q", got.Bytes())
	}
	if err := e.DeleteSecret(ctx, "token"); err != nil {
		t.Fatalf("DeleteSecret failed: %v", err)
	}
	if _, err := e.RetrieveSecret(ctx, "token"); !errors.Is(err, keystore.ErrRetrievalFailed) {
		t.Fatalf("got %v, want ErrRetrievalFailed", err)
	}
}

func TestEngineEncryptDecryptDelegation(t *testing.T) {
	e := newTestEngine(t, nil)
	payload, err := e.Encrypt([]byte("plaintext"), "k1")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	got, err := e.Decrypt(payload)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, []byte("plaintext")) {
		t.Fatalf("roundtrip mismatch: %q", got)
	}
}

func TestLockTransitions(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	state, err := e.UnlockState(ctx)
	if err != nil {
		t.Fatalf("UnlockState failed: %v", err)
	}
	if state != model.Locked {
		t.Fatalf("fresh engine state = %s, want locked", state)
	}

	// Locking a never-unlocked device keeps it fully locked.
	if err := e.Lock(ctx); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if state, _ = e.UnlockState(ctx); state != model.Locked {
		t.Fatalf("state = %s, want locked", state)
	}

	if err := e.Unlock(ctx); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if state, _ = e.UnlockState(ctx); state != model.Unlocked {
		t.Fatalf("state = %s, want unlocked", state)
	}

	// Re-locking after a first unlock keeps the first-unlock window open.
	if err := e.Lock(ctx); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if state, _ = e.UnlockState(ctx); state != model.UnlockedOnce {
		t.Fatalf("state = %s, want unlocked_once", state)
	}
}

func TestAuthenticateIsAudited(t *testing.T) {
	ch := &scriptedChallenger{
		avail:    model.BiometryAvailability{Available: true, Kind: model.BiometryTouch},
		decision: true,
	}
	e := newTestEngine(t, ch)

	ok, err := e.Authenticate(context.Background(), "test access")
	if err != nil || !ok {
		t.Fatalf("Authenticate = %v, %v", ok, err)
	}

	entries, err := e.AuditLog()
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	found := false
	for _, entry := range entries {
		if entry.Action == "AUTH_SUCCESS" {
			found = true
		}
	}
	if !found {
		t.Fatal("successful authentication must be audited")
	}
}

func TestAuthenticatePlatformErrorSurfaces(t *testing.T) {
	ch := &scriptedChallenger{
		avail: model.BiometryAvailability{Available: true, Kind: model.BiometryFace},
		err:   errors.New("canceled by system"),
	}
	e := newTestEngine(t, ch)

	if _, err := e.Authenticate(context.Background(), "r"); !errors.Is(err, authgate.ErrBiometricFailed) {
		t.Fatalf("got %v, want ErrBiometricFailed", err)
	}
}

func TestPasscodeEnrollAndVerify(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	if err := e.Unlock(ctx); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	if err := e.EnrollPasscode(ctx, []byte("1234")); err != nil {
		t.Fatalf("EnrollPasscode failed: %v", err)
	}

	ok, err := e.VerifyPasscode(authgate.HashPasscode([]byte("1234")))
	if err != nil {
		t.Fatalf("VerifyPasscode failed: %v", err)
	}
	if !ok {
		t.Fatal("correct passcode must verify")
	}

	ok, err = e.VerifyPasscode(authgate.HashPasscode([]byte("4321")))
	if err != nil {
		t.Fatalf("VerifyPasscode failed: %v", err)
	}
	if ok {
		t.Fatal("wrong passcode must not verify")
	}
}

func TestPasscodeDigestNeverLeavesInBackups(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	if err := e.Unlock(ctx); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := e.EnrollPasscode(ctx, []byte("1234")); err != nil {
		t.Fatalf("EnrollPasscode failed: %v", err)
	}

	backup, err := e.ExportBackup(ctx)
	if err != nil {
		t.Fatalf("ExportBackup failed: %v", err)
	}
	for _, rec := range backup.Secrets {
		if rec.Identifier == "sentinel.device-passcode" {
			t.Fatal("the passcode digest is device-bound and must not export")
		}
	}
}

func TestConfigureRepropagates(t *testing.T) {
	e := newTestEngine(t, nil)

	cfg := defaultConfig()
	cfg.KeyManagement.Algorithm = "xchacha20-poly1305"
	if err := e.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	payload, err := e.Encrypt([]byte("p"), "k")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(payload.Nonce) != 24 {
		t.Fatalf("nonce length = %d, want 24 after algorithm switch", len(payload.Nonce))
	}

	cfg.KeyManagement.Algorithm = "enigma"
	if err := e.Configure(cfg); err == nil {
		t.Fatal("Configure must reject an unknown algorithm")
	}
	// A rejected configuration leaves the previous one live.
	if e.Config().KeyManagement.Algorithm != "xchacha20-poly1305" {
		t.Fatalf("config after rejected Configure = %q", e.Config().KeyManagement.Algorithm)
	}
}

func TestDetectThreatsIsAudited(t *testing.T) {
	e := newTestEngine(t, nil)
	_ = e.DetectThreats()
	entries, err := e.AuditLog()
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	found := false
	for _, entry := range entries {
		if entry.Action == "THREAT_SCAN" {
			found = true
		}
	}
	if !found {
		t.Fatal("threat scans must be audited")
	}
}
