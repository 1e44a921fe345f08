// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"context"

	"github.com/toeirei/sentinel/internal/model"
	"github.com/toeirei/sentinel/internal/security"
)

// Store is the secure key-value store over the protected persistence
// facility. Implementations provide per-identifier atomicity; there are no
// multi-identifier transactions and no rollback. Access levels are enforced
// against the persisted device unlock state on every Get.
type Store interface {
	// Put upserts a secret. A second Put under the same identifier
	// overwrites both the value and the access level.
	Put(ctx context.Context, identifier string, value security.Secret, level model.AccessLevel) error
	// Get retrieves a secret value, all-or-nothing.
	Get(ctx context.Context, identifier string) (security.Secret, error)
	// Delete removes a secret. Deleting a missing identifier is success.
	Delete(ctx context.Context, identifier string) error

	// Device unlock state, persisted by the facility.
	UnlockState(ctx context.Context) (model.UnlockState, error)
	SetUnlockState(ctx context.Context, state model.UnlockState) error

	// Audit trail.
	LogAction(action string, details string) error
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)

	// Backup boundary. Export skips ThisDeviceOnly records; Import upserts.
	ExportDataForBackup(ctx context.Context) (*model.BackupData, error)
	ImportDataFromBackup(ctx context.Context, backup *model.BackupData) error

	Close() error
}
