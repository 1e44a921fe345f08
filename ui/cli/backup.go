// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/toeirei/sentinel/internal/i18n"
	"github.com/toeirei/sentinel/internal/model"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup <file>",
		Short: "Export the store to a compressed backup file",
		Long: `Write the exportable contents of the protected store to a
zstd-compressed JSON file. Records with a this-device-only access level are
never included; they do not survive a restore to another device.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			backup, err := app.ExportBackup(cmd.Context())
			if err != nil {
				return err
			}

			if err := writeBackupFile(path, backup); err != nil {
				return err
			}
			fmt.Println(i18n.T("backup.written", path, len(backup.Secrets), len(backup.AuditLog)))
			return nil
		},
	}
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Import secrets from a backup file",
		Long: `Read a backup file and upsert its records into the protected
store. Existing identifiers are overwritten. Device-bound records that ended
up in a backup by other means are skipped on import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			backup, err := readBackupFile(path)
			if err != nil {
				return err
			}

			deviceBound := 0
			for _, rec := range backup.Secrets {
				if rec.AccessLevel.ThisDeviceOnly() {
					deviceBound++
				}
			}

			if err := app.ImportBackup(cmd.Context(), backup); err != nil {
				return err
			}
			fmt.Println(i18n.T("backup.restored", path, len(backup.Secrets)-deviceBound))
			if deviceBound > 0 {
				fmt.Println(i18n.T("backup.skipped_device_only", deviceBound))
			}
			return nil
		},
	}
	return cmd
}

func writeBackupFile(path string, backup *model.BackupData) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer file.Close()

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not initialize compression: %w", err)
	}

	if err := json.NewEncoder(encoder).Encode(backup); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("could not encode backup: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("could not finalize backup: %w", err)
	}
	return file.Close()
}

func readBackupFile(path string) (*model.BackupData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open backup file: %w", err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not initialize decompression: %w", err)
	}
	defer decoder.Close()

	var backup model.BackupData
	if err := json.NewDecoder(decoder).Decode(&backup); err != nil {
		return nil, fmt.Errorf("could not decode backup: %w", err)
	}
	return &backup, nil
}
