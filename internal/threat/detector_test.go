// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.
package threat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/model"
)

func allOff() config.ThreatDetectionConfig {
	return config.ThreatDetectionConfig{AlertThreshold: "low"}
}

func TestDetectThreatsAllTogglesOffIsEmpty(t *testing.T) {
	d := New(allOff())
	// Point the probes at real-looking targets anyway; toggles must win.
	d.artifactPaths = []string{"/"}
	d.statusPath = "/proc/self/status"

	if got := d.DetectThreats(); len(got) != 0 {
		t.Fatalf("expected empty scan with all toggles off, got %v", got)
	}
}

func TestTamperSignalOnArtifactPresence(t *testing.T) {
	tmp := t.TempDir()
	artifact := filepath.Join(tmp, "su")
	if err := os.WriteFile(artifact, []byte{}, 0o755); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	cfg := allOff()
	cfg.DetectTamperSignals = true
	d := New(cfg)
	d.artifactPaths = []string{artifact}
	d.probeDirs = nil

	got := d.DetectThreats()
	if len(got) != 1 {
		t.Fatalf("expected one finding, got %v", got)
	}
	if got[0].Type != model.ThreatJailbreak || got[0].Severity != model.SeverityCritical {
		t.Fatalf("unexpected finding: %+v", got[0])
	}
}

func TestTamperSignalOnWritableProtectedDir(t *testing.T) {
	cfg := allOff()
	cfg.DetectTamperSignals = true
	d := New(cfg)
	d.artifactPaths = nil
	// A writable dir standing in for a directory the sandbox should protect.
	d.probeDirs = []string{t.TempDir()}

	got := d.DetectThreats()
	if len(got) != 1 {
		t.Fatalf("expected one finding, got %v", got)
	}
	if got[0].Type != model.ThreatJailbreak {
		t.Fatalf("unexpected finding type: %v", got[0].Type)
	}
}

func TestNoTamperSignalOnCleanEnvironment(t *testing.T) {
	tmp := t.TempDir()
	locked := filepath.Join(tmp, "locked")
	if err := os.Mkdir(locked, 0o555); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if os.Geteuid() == 0 {
		t.Skip("running as root: directory modes do not restrict writes")
	}

	cfg := allOff()
	cfg.DetectTamperSignals = true
	d := New(cfg)
	d.artifactPaths = []string{filepath.Join(tmp, "missing")}
	d.probeDirs = []string{locked}

	if got := d.DetectThreats(); len(got) != 0 {
		t.Fatalf("expected clean scan, got %v", got)
	}
}

func TestDebuggerDetectionFromStatusFile(t *testing.T) {
	tmp := t.TempDir()
	status := filepath.Join(tmp, "status")
	content := "Name:\tsentinel\nTracerPid:\t4242\nUid:\t1000\n"
	if err := os.WriteFile(status, []byte(content), 0o644); err != nil {
		t.Fatalf("write status: %v", err)
	}

	cfg := allOff()
	cfg.DetectDebugger = true
	d := New(cfg)
	d.statusPath = status

	got := d.DetectThreats()
	if len(got) != 1 {
		t.Fatalf("expected one finding, got %v", got)
	}
	if got[0].Type != model.ThreatDebugger || got[0].Severity != model.SeverityHigh {
		t.Fatalf("unexpected finding: %+v", got[0])
	}
}

func TestNoDebuggerWhenTracerPidZero(t *testing.T) {
	tmp := t.TempDir()
	status := filepath.Join(tmp, "status")
	if err := os.WriteFile(status, []byte("TracerPid:\t0\n"), 0o644); err != nil {
		t.Fatalf("write status: %v", err)
	}

	cfg := allOff()
	cfg.DetectDebugger = true
	d := New(cfg)
	d.statusPath = status

	if got := d.DetectThreats(); len(got) != 0 {
		t.Fatalf("expected no findings, got %v", got)
	}
}

func TestNoDebuggerWhenStatusUnreadable(t *testing.T) {
	cfg := allOff()
	cfg.DetectDebugger = true
	d := New(cfg)
	d.statusPath = filepath.Join(t.TempDir(), "absent")

	if got := d.DetectThreats(); len(got) != 0 {
		t.Fatalf("expected no findings, got %v", got)
	}
}

func TestAlertThresholdFiltersFindings(t *testing.T) {
	tmp := t.TempDir()
	status := filepath.Join(tmp, "status")
	if err := os.WriteFile(status, []byte("TracerPid:\t7\n"), 0o644); err != nil {
		t.Fatalf("write status: %v", err)
	}

	cfg := allOff()
	cfg.DetectDebugger = true
	cfg.AlertThreshold = "critical"
	d := New(cfg)
	d.statusPath = status

	// The debugger finding is high; a critical threshold suppresses it.
	if got := d.DetectThreats(); len(got) != 0 {
		t.Fatalf("threshold must suppress sub-critical findings, got %v", got)
	}

	d.Configure(func() config.ThreatDetectionConfig {
		c := cfg
		c.AlertThreshold = "high"
		return c
	}())
	if got := d.DetectThreats(); len(got) != 1 {
		t.Fatalf("high threshold must pass the debugger finding, got %v", got)
	}
}

func TestMonitorNetworkIsANoOp(t *testing.T) {
	cfg := allOff()
	cfg.MonitorNetwork = true
	d := New(cfg)

	if got := d.DetectThreats(); len(got) != 0 {
		t.Fatalf("network monitoring must produce no findings, got %v", got)
	}
}

func TestUnknownThresholdFallsBackToLow(t *testing.T) {
	tmp := t.TempDir()
	status := filepath.Join(tmp, "status")
	if err := os.WriteFile(status, []byte("TracerPid:\t9\n"), 0o644); err != nil {
		t.Fatalf("write status: %v", err)
	}

	cfg := allOff()
	cfg.DetectDebugger = true
	cfg.AlertThreshold = "ultraviolet"
	d := New(cfg)
	d.statusPath = status

	if got := d.DetectThreats(); len(got) != 1 {
		t.Fatalf("unknown threshold must not suppress findings, got %v", got)
	}
}
