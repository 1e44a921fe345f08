// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the SQLite implementation of the Store interface.
package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
	"github.com/uptrace/bun"
)

// SqliteStore is the SQLite-backed protected persistence facility.
type SqliteStore struct {
	db  *sql.DB
	bun *bun.DB
}

// Put upserts the secret. "Already exists" never surfaces to the caller;
// the conflict is resolved as an overwrite of value and access level.
func (s *SqliteStore) Put(ctx context.Context, identifier string, value security.Secret, level model.AccessLevel) error {
	if identifier == "" {
		return fmt.Errorf("%w: empty identifier", ErrStoreFailed)
	}
	if err := UpsertSecretBun(ctx, s.bun, identifier, value, level); err != nil {
		if mapped := MapDBError(err); errors.Is(mapped, ErrDuplicate) {
			// The upsert should have absorbed the conflict; reaching this
			// branch means the facility raced us, retry once as an update.
			if retryErr := UpsertSecretBun(ctx, s.bun, identifier, value, level); retryErr == nil {
				storeLogf("put %s resolved duplicate as update", identifier)
				_ = s.LogAction("STORE_SECRET", fmt.Sprintf("identifier: %s, access_level: %s", identifier, level))
				return nil
			}
		}
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	storeLogf("put %s (%s)", identifier, level)
	_ = s.LogAction("STORE_SECRET", fmt.Sprintf("identifier: %s, access_level: %s", identifier, level))
	return nil
}

// Get retrieves a secret value. The record's access level is checked
// against the persisted device unlock state before the value is released.
func (s *SqliteStore) Get(ctx context.Context, identifier string) (security.Secret, error) {
	rec, err := GetSecretBun(ctx, s.bun, identifier)
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			return nil, fmt.Errorf("%w: no record for identifier %q", ErrRetrievalFailed, identifier)
		}
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	state, err := GetUnlockStateBun(ctx, s.bun)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	if !rec.AccessLevel.Satisfied(state) {
		return nil, fmt.Errorf("%w: access level %s not satisfied while device is %s", ErrRetrievalFailed, rec.AccessLevel, state)
	}

	storeLogf("get %s", identifier)
	return security.FromBytes(rec.Value), nil
}

// Delete removes a secret. Missing identifiers are deleted successfully;
// only a genuine facility error is surfaced.
func (s *SqliteStore) Delete(ctx context.Context, identifier string) error {
	if err := DeleteSecretBun(ctx, s.bun, identifier); err != nil {
		return fmt.Errorf("%w: %v", ErrDeletionFailed, err)
	}
	storeLogf("delete %s", identifier)
	_ = s.LogAction("DELETE_SECRET", fmt.Sprintf("identifier: %s", identifier))
	return nil
}

// UnlockState reads the persisted device unlock state.
func (s *SqliteStore) UnlockState(ctx context.Context) (model.UnlockState, error) {
	return GetUnlockStateBun(ctx, s.bun)
}

// SetUnlockState persists the device unlock state.
func (s *SqliteStore) SetUnlockState(ctx context.Context, state model.UnlockState) error {
	if err := SetUnlockStateBun(ctx, s.bun, state); err != nil {
		return err
	}
	_ = s.LogAction("SET_UNLOCK_STATE", fmt.Sprintf("state: %s", state))
	return nil
}

// LogAction records an audit trail event.
func (s *SqliteStore) LogAction(action string, details string) error {
	return LogActionBun(context.Background(), s.bun, action, details)
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func (s *SqliteStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(context.Background(), s.bun)
}

// ExportDataForBackup retrieves the exportable records and the audit log.
// Records bound to this device never leave it.
func (s *SqliteStore) ExportDataForBackup(ctx context.Context) (*model.BackupData, error) {
	secrets, err := ExportSecretsBun(ctx, s.bun)
	if err != nil {
		return nil, fmt.Errorf("failed to export secrets: %w", err)
	}
	audit, err := s.GetAllAuditLogEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to export audit log: %w", err)
	}
	return &model.BackupData{Secrets: secrets, AuditLog: audit}, nil
}

// ImportDataFromBackup upserts the records from a backup. Existing records
// with the same identifier are overwritten; nothing is deleted.
func (s *SqliteStore) ImportDataFromBackup(ctx context.Context, backup *model.BackupData) error {
	if backup == nil {
		return fmt.Errorf("%w: nil backup", ErrStoreFailed)
	}
	for _, rec := range backup.Secrets {
		if rec.AccessLevel.ThisDeviceOnly() {
			// A backup containing device-bound records was made elsewhere;
			// honoring the binding means refusing them here.
			continue
		}
		if err := UpsertSecretBun(ctx, s.bun, rec.Identifier, security.FromBytes(rec.Value), rec.AccessLevel); err != nil {
			return fmt.Errorf("%w: import of %q: %v", ErrStoreFailed, rec.Identifier, err)
		}
	}
	_ = s.LogAction("IMPORT_BACKUP", fmt.Sprintf("secrets: %d", len(backup.Secrets)))
	return nil
}

// Close releases the underlying database handle.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}
