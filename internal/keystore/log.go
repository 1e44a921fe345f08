// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.
package keystore

import (
	"fmt"

	log "github.com/charmbracelet/log"
)

var storeDebugEnabled bool

// SetDebug enables or disables store debug logging. Disabled by default.
func SetDebug(enabled bool) {
	storeDebugEnabled = enabled
}

func storeLogf(format string, v ...any) {
	if storeDebugEnabled {
		log.Info(fmt.Sprintf("[STORE] "+format, v...))
	}
}
