// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toeirei/sentinel/internal/i18n"
	"github.com/toeirei/sentinel/internal/model"
)

func newAuthCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Present the device authentication challenge",
		Long: `Present the platform authentication challenge and report the
outcome. On machines without a biometric sensor this falls back to the
enrolled passcode, prompted on the terminal. The outcome is recorded in the
audit trail either way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			avail := app.CheckAvailability()
			if !avail.Available {
				return errors.New(i18n.T("auth.unavailable", avail.Reason))
			}

			ok, err := app.Authenticate(cmd.Context(), reason)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(i18n.T("auth.denied"))
			}
			fmt.Println(i18n.T("auth.succeeded"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "access Sentinel", "Reason shown with the challenge")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the device and authentication status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := app.UnlockState(cmd.Context())
			if err != nil {
				return err
			}

			avail := app.CheckAvailability()
			fmt.Printf("Device state:  %s\n", state)
			if avail.Available {
				fmt.Printf("Auth:          available (%s)\n", avail.Kind)
			} else {
				fmt.Printf("Auth:          unavailable (%s)\n", avail.Reason)
			}
			fmt.Printf("Algorithm:     %s\n", appConfig.KeyManagement.Algorithm)
			return nil
		},
	}
}

// scanExitCode maps the worst finding to the process exit code, so scripts
// can branch on severity without parsing output.
func scanExitCode(threats []model.SecurityThreat) int {
	worst := model.SeverityLow
	for _, t := range threats {
		if t.Severity > worst {
			worst = t.Severity
		}
	}
	switch worst {
	case model.SeverityCritical:
		return 3
	case model.SeverityHigh:
		return 2
	default:
		return 1
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the execution environment for threats",
		Long: `Run the configured threat heuristics: tamper signals (compromise
artifacts, writable protected directories) and an attached debugger. Findings
are advisory; the exit code reflects the worst severity found (0 clean,
1 low/medium, 2 high, 3 critical).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threats := app.DetectThreats()
			if len(threats) == 0 {
				fmt.Println(i18n.T("scan.clean"))
				return nil
			}

			fmt.Println(i18n.T("scan.findings", len(threats)))
			for _, t := range threats {
				fmt.Printf("  %s\n", t)
				if t.RecommendedAction != "" {
					fmt.Printf("    recommended: %s\n", t.RecommendedAction)
				}
			}

			// Exit directly with the severity code; close the store first
			// since deferred cleanup does not run past os.Exit.
			code := scanExitCode(threats)
			if err := app.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing the protected store: %v\n", err)
			}
			app = nil
			os.Exit(code)
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		Long:  "List recorded actions, most recent first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.AuditLog()
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			for _, entry := range entries {
				fmt.Printf("%s  %-16s %s\n", entry.Timestamp, entry.Action, entry.Details)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many entries (0 for all)")
	return cmd
}
