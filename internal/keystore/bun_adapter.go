// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
	"github.com/uptrace/bun"
)

// SecretModel maps the `secrets` table for Bun queries.
type SecretModel struct {
	bun.BaseModel `bun:"table:secrets"`
	Identifier    string          `bun:"identifier,pk"`
	Value         security.Secret `bun:"value"`
	AccessLevel   string          `bun:"access_level"`
	CreatedAt     time.Time       `bun:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at"`
}

// AuditLogModel maps the `audit_log` table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// DeviceStateModel maps the single-row `device_state` table.
type DeviceStateModel struct {
	bun.BaseModel `bun:"table:device_state"`
	ID            int `bun:"id,pk"`
	UnlockState   int `bun:"unlock_state"`
}

// errRecordNotFound distinguishes a missing record from a facility error
// inside this package; callers only ever see the wrapped taxonomy errors.
var errRecordNotFound = errors.New("record not found")

// UpsertSecretBun inserts the record or, when the identifier already
// exists, overwrites value and access level in place. The conflict branch
// is how "already exists" is handled internally as an update.
func UpsertSecretBun(ctx context.Context, bdb *bun.DB, identifier string, value security.Secret, level model.AccessLevel) error {
	now := time.Now().UTC()
	rec := &SecretModel{
		Identifier:  identifier,
		Value:       value,
		AccessLevel: level.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := bdb.NewInsert().
		Model(rec).
		On("CONFLICT (identifier) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("access_level = EXCLUDED.access_level").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// GetSecretBun loads one record by identifier.
func GetSecretBun(ctx context.Context, bdb *bun.DB, identifier string) (*model.SecretRecord, error) {
	var sm SecretModel
	err := bdb.NewSelect().Model(&sm).Where("identifier = ?", identifier).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errRecordNotFound
		}
		return nil, err
	}
	level, err := model.ParseAccessLevel(sm.AccessLevel)
	if err != nil {
		return nil, err
	}
	return &model.SecretRecord{
		Identifier:  sm.Identifier,
		Value:       sm.Value.Bytes(),
		AccessLevel: level,
		CreatedAt:   sm.CreatedAt,
		UpdatedAt:   sm.UpdatedAt,
	}, nil
}

// DeleteSecretBun removes a record; deleting a missing identifier is a
// no-op success.
func DeleteSecretBun(ctx context.Context, bdb *bun.DB, identifier string) error {
	_, err := bdb.NewDelete().Model((*SecretModel)(nil)).Where("identifier = ?", identifier).Exec(ctx)
	return err
}

// GetUnlockStateBun reads the persisted device unlock state.
func GetUnlockStateBun(ctx context.Context, bdb *bun.DB) (model.UnlockState, error) {
	var ds DeviceStateModel
	err := bdb.NewSelect().Model(&ds).Where("id = ?", 1).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Fresh facility: the device has not been unlocked since boot.
			return model.Locked, nil
		}
		return model.Locked, err
	}
	return model.UnlockState(ds.UnlockState), nil
}

// SetUnlockStateBun persists the device unlock state.
func SetUnlockStateBun(ctx context.Context, bdb *bun.DB, state model.UnlockState) error {
	ds := &DeviceStateModel{ID: 1, UnlockState: int(state)}
	_, err := bdb.NewInsert().
		Model(ds).
		On("CONFLICT (id) DO UPDATE").
		Set("unlock_state = EXCLUDED.unlock_state").
		Exec(ctx)
	return err
}

// LogActionBun appends an audit log entry.
func LogActionBun(ctx context.Context, bdb *bun.DB, action, details string) error {
	entry := &AuditLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    action,
		Details:   details,
	}
	_, err := bdb.NewInsert().Model(entry).Exec(ctx)
	return err
}

// GetAllAuditLogEntriesBun returns the audit trail, most recent first.
func GetAllAuditLogEntriesBun(ctx context.Context, bdb *bun.DB) ([]model.AuditLogEntry, error) {
	var rows []AuditLogModel
	if err := bdb.NewSelect().Model(&rows).Order("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AuditLogEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Action:    r.Action,
			Details:   r.Details,
		})
	}
	return out, nil
}

// ExportSecretsBun returns every record whose access level permits leaving
// the device. ThisDeviceOnly records are filtered here, at the facility
// boundary, so no caller can export them by accident.
func ExportSecretsBun(ctx context.Context, bdb *bun.DB) ([]model.SecretRecord, error) {
	var rows []SecretModel
	if err := bdb.NewSelect().Model(&rows).Order("identifier ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.SecretRecord, 0, len(rows))
	for _, r := range rows {
		level, err := model.ParseAccessLevel(r.AccessLevel)
		if err != nil {
			return nil, err
		}
		if level.ThisDeviceOnly() {
			continue
		}
		out = append(out, model.SecretRecord{
			Identifier:  r.Identifier,
			Value:       r.Value.Bytes(),
			AccessLevel: level,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return out, nil
}
