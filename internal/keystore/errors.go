// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the shared store error taxonomy and helpers.
package keystore

import (
	"errors"
	"strings"
)

// ErrStoreFailed is returned when persisting a secret fails for any reason
// other than "already exists", which is handled internally as an update.
var ErrStoreFailed = errors.New("key store failed")

// ErrRetrievalFailed is returned when a secret cannot be read: no record
// exists, the device unlock state does not satisfy the record's access
// level, or the underlying facility errored. Retrieval is all-or-nothing.
var ErrRetrievalFailed = errors.New("key retrieval failed")

// ErrDeletionFailed is returned only on a genuine facility error. Deleting
// an identifier that does not exist is success.
var ErrDeletionFailed = errors.New("key deletion failed")

// ErrDuplicate is the mapped form of a unique-constraint violation.
var ErrDuplicate = errors.New("duplicate record")

// MapDBError inspects low-level driver errors and maps common constraint
// violations to package-level sentinel errors (like ErrDuplicate). This is a
// conservative, string-based mapping to avoid importing SQL driver packages
// into this package file.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") {
		return ErrDuplicate
	}
	return err
}
