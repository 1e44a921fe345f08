// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli wires the Sentinel security engine to a cobra command tree.
// It owns configuration loading, store initialization and the mapping from
// engine errors to process exit codes; all security semantics live in the
// internal packages.
package cli
