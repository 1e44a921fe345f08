// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the shared data types for Sentinel: encrypted
// payloads, secret records with their access levels, threat findings and
// the device biometry/unlock state. It has no dependencies on the other
// Sentinel packages so every layer can speak the same vocabulary.
package model

import (
	"fmt"
	"time"
)

// AccessLevel controls when a stored secret may be retrieved, depending on
// the device lock state and whether the record is bound to this device.
// The order reflects the availability window, narrowest binding last.
type AccessLevel int

const (
	// WhenUnlocked makes the record available only while the device is unlocked.
	WhenUnlocked AccessLevel = iota
	// AfterFirstUnlock makes the record available from the first unlock after
	// boot until shutdown, even while the device is re-locked.
	AfterFirstUnlock
	// WhenUnlockedThisDeviceOnly is WhenUnlocked plus a device binding: the
	// record never survives a restore to a different device.
	WhenUnlockedThisDeviceOnly
	// AfterFirstUnlockThisDeviceOnly is AfterFirstUnlock plus the device binding.
	AfterFirstUnlockThisDeviceOnly
)

// String returns the canonical name used in config files and the audit log.
func (l AccessLevel) String() string {
	switch l {
	case WhenUnlocked:
		return "when_unlocked"
	case AfterFirstUnlock:
		return "after_first_unlock"
	case WhenUnlockedThisDeviceOnly:
		return "when_unlocked_this_device_only"
	case AfterFirstUnlockThisDeviceOnly:
		return "after_first_unlock_this_device_only"
	default:
		return "unknown"
	}
}

// ParseAccessLevel converts a canonical name back into an AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "when_unlocked":
		return WhenUnlocked, nil
	case "after_first_unlock":
		return AfterFirstUnlock, nil
	case "when_unlocked_this_device_only":
		return WhenUnlockedThisDeviceOnly, nil
	case "after_first_unlock_this_device_only":
		return AfterFirstUnlockThisDeviceOnly, nil
	default:
		return WhenUnlocked, fmt.Errorf("unknown access level: %q", s)
	}
}

// ThisDeviceOnly reports whether the record carries the device binding that
// forbids it from surviving a restore to a new device (and therefore from
// appearing in backup exports).
func (l AccessLevel) ThisDeviceOnly() bool {
	return l == WhenUnlockedThisDeviceOnly || l == AfterFirstUnlockThisDeviceOnly
}

// UnlockState models the device lock lifecycle as seen by the protected
// persistence facility.
type UnlockState int

const (
	// Locked means the device has not been unlocked since boot.
	Locked UnlockState = iota
	// UnlockedOnce means the device was unlocked at least once since boot
	// but is currently locked again.
	UnlockedOnce
	// Unlocked means the device is currently unlocked.
	Unlocked
)

// String returns the human-readable name of the unlock state.
func (s UnlockState) String() string {
	switch s {
	case Locked:
		return "locked"
	case UnlockedOnce:
		return "unlocked_once"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Satisfied reports whether a record with this access level is retrievable
// in the given unlock state. The device binding does not affect local
// retrieval, only backup/restore.
func (l AccessLevel) Satisfied(state UnlockState) bool {
	switch l {
	case WhenUnlocked, WhenUnlockedThisDeviceOnly:
		return state == Unlocked
	case AfterFirstUnlock, AfterFirstUnlockThisDeviceOnly:
		return state == Unlocked || state == UnlockedOnce
	default:
		return false
	}
}

// EncryptedPayload is the sealed output of the encryption manager. All four
// fields must be preserved bit-for-bit across any store or transmit; any
// reordering or truncation makes decryption fail with a tag mismatch.
type EncryptedPayload struct {
	Ciphertext    []byte `json:"ciphertext"`
	Nonce         []byte `json:"nonce"`
	Tag           []byte `json:"tag"`
	KeyIdentifier string `json:"key_identifier"`
}

// SecretRecord is one entry of the secure key-value store. Identifier is
// unique per record; a second Put under the same identifier overwrites both
// the value and the access level.
type SecretRecord struct {
	Identifier  string
	Value       []byte
	AccessLevel AccessLevel
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ThreatType classifies a threat finding.
type ThreatType string

const (
	ThreatJailbreak      ThreatType = "jailbreak"
	ThreatDebugger       ThreatType = "debugger"
	ThreatNetworkMonitor ThreatType = "network_monitor"
)

// Severity grades a threat finding. The numeric order is meaningful: a
// configured alert threshold suppresses findings below it.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the human-readable name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity name into a Severity value.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity: %q", s)
	}
}

// SecurityThreat is a transient finding produced by a threat scan. Findings
// are advisory only; nothing in Sentinel acts on them.
type SecurityThreat struct {
	Type              ThreatType
	Severity          Severity
	Description       string
	DetectedAt        time.Time
	RecommendedAction string
}

// String returns the finding in the form used by the scan output.
func (t SecurityThreat) String() string {
	return fmt.Sprintf("[%s] %s: %s", t.Severity, t.Type, t.Description)
}

// BiometryKind is the closed set of biometric sensor classes Sentinel knows
// about. A new platform sensor class requires an explicit new variant here
// rather than a silent fallthrough.
type BiometryKind int

const (
	// BiometryNone means no biometric sensor is usable; only a passcode
	// challenge can be presented.
	BiometryNone BiometryKind = iota
	// BiometryTouch is a fingerprint-class sensor.
	BiometryTouch
	// BiometryFace is a face-recognition-class sensor.
	BiometryFace
	// BiometryOptic is an iris/eye-class sensor.
	BiometryOptic
)

// String returns the human-readable name of the biometry kind.
func (k BiometryKind) String() string {
	switch k {
	case BiometryNone:
		return "none"
	case BiometryTouch:
		return "touch"
	case BiometryFace:
		return "face"
	case BiometryOptic:
		return "optic"
	default:
		return "unknown"
	}
}

// BiometryAvailability is the synchronous answer of the authorization gate:
// whether a challenge can currently be presented, with which sensor class,
// and the platform reason when it cannot.
type BiometryAvailability struct {
	Available bool
	Kind      BiometryKind
	Reason    string
}

// AuditLogEntry records one action in the audit trail.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Action    string
	Details   string
}

// BackupData is the container for a full export of the store. Records with
// a ThisDeviceOnly access level are never included.
type BackupData struct {
	Secrets  []SecretRecord  `json:"secrets"`
	AuditLog []AuditLogEntry `json:"audit_log"`
}
