// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package threat implements stateless heuristics over the execution
// environment: known compromise artifacts on the filesystem, sandbox write
// probes, and debugger attachment. Detection is advisory only; nothing in
// Sentinel acts on a finding, and nothing is persisted between scans.
package threat

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/model"
)

// knownCompromiseArtifacts are filesystem paths whose presence indicates a
// rooted/jailbroken device or an instrumentation framework.
var knownCompromiseArtifacts = []string{
	"/sbin/su",
	"/system/bin/su",
	"/system/xbin/su",
	"/system/app/Superuser.apk",
	"/usr/bin/frida-server",
	"/usr/sbin/frida-server",
	"/var/lib/cydia",
	"/usr/libexec/cydia",
	"/private/var/lib/apt",
}

// protectedProbeDirs are directories a sandboxed process must not be able
// to write into. A successful write is a sandbox escape on its own, even
// with no artifact present.
var protectedProbeDirs = []string{
	"/usr/sbin",
	"/sbin",
}

// Detector runs the configured heuristics. It holds no state between scans
// beyond its configuration; repeated calls re-scan from scratch.
type Detector struct {
	cfg config.ThreatDetectionConfig

	// Probe targets are fields so tests can point them at fixtures.
	artifactPaths []string
	probeDirs     []string
	statusPath    string
}

// New builds a Detector for the given configuration.
func New(cfg config.ThreatDetectionConfig) *Detector {
	return &Detector{
		cfg:           cfg,
		artifactPaths: knownCompromiseArtifacts,
		probeDirs:     protectedProbeDirs,
		statusPath:    "/proc/self/status",
	}
}

// Configure replaces the detector's configuration for subsequent scans.
func (d *Detector) Configure(cfg config.ThreatDetectionConfig) {
	d.cfg = cfg
}

// DetectThreats runs every enabled check and returns the findings at or
// above the configured alert threshold. Each check contributes zero or one
// finding. The network-monitoring toggle exists in configuration but
// deliberately produces no findings.
func (d *Detector) DetectThreats() []model.SecurityThreat {
	threats := []model.SecurityThreat{}

	if d.cfg.DetectTamperSignals {
		if t := d.checkTamperSignals(); t != nil {
			threats = append(threats, *t)
		}
	}
	if d.cfg.DetectDebugger {
		if t := d.checkDebugger(); t != nil {
			threats = append(threats, *t)
		}
	}
	// MonitorNetwork: no-op by policy; the toggle is reserved.

	threshold, err := model.ParseSeverity(d.cfg.AlertThreshold)
	if err != nil {
		threshold = model.SeverityLow
	}
	filtered := threats[:0]
	for _, t := range threats {
		if t.Severity >= threshold {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// checkTamperSignals probes for known compromise artifacts and tries a
// write into directories the sandbox must protect. Either signal alone is
// sufficient for a critical finding.
func (d *Detector) checkTamperSignals() *model.SecurityThreat {
	for _, p := range d.artifactPaths {
		if _, err := os.Stat(p); err == nil {
			return &model.SecurityThreat{
				Type:              model.ThreatJailbreak,
				Severity:          model.SeverityCritical,
				Description:       "known compromise artifact present: " + p,
				DetectedAt:        time.Now(),
				RecommendedAction: "do not handle secrets on this device",
			}
		}
	}
	for _, dir := range d.probeDirs {
		if d.canWriteInto(dir) {
			return &model.SecurityThreat{
				Type:              model.ThreatJailbreak,
				Severity:          model.SeverityCritical,
				Description:       "sandbox allowed a write into protected directory " + dir,
				DetectedAt:        time.Now(),
				RecommendedAction: "do not handle secrets on this device",
			}
		}
	}
	return nil
}

// canWriteInto attempts to create and remove a probe file in dir.
func (d *Detector) canWriteInto(dir string) bool {
	probe := filepath.Join(dir, ".sentinel_probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}

// checkDebugger reads the kernel's process-trace flag for this process.
// A non-zero TracerPid means another process is tracing us.
func (d *Detector) checkDebugger() *model.SecurityThreat {
	f, err := os.Open(d.statusPath)
	if err != nil {
		// No procfs on this platform; the check has nothing to report.
		return nil
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] != "0" {
			return &model.SecurityThreat{
				Type:              model.ThreatDebugger,
				Severity:          model.SeverityHigh,
				Description:       "a debugger is attached to this process (TracerPid " + fields[1] + ")",
				DetectedAt:        time.Now(),
				RecommendedAction: "terminate the tracing process before handling secrets",
			}
		}
		break
	}
	return nil
}
