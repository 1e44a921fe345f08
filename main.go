// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Sentinel.
//
// Usage:
//
//	go run . [flags]
//	./sentinel [flags]
//
// This launches the Sentinel CLI. See --help for options.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/toeirei/sentinel/ui/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

// main is the entrypoint for the Sentinel CLI.
func main() {
	// Print version info if requested (optional, placeholder for future flag parsing)
	if os.Getenv("SENTINEL_SHOW_VERSION") == "1" {
		fmt.Fprintf(os.Stderr, "Sentinel version: %s\n", version)
	}

	if err := cli.Execute(); err != nil {
		log.Printf("Sentinel CLI error: %v", err)
		os.Exit(1)
	}
}
