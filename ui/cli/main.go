// Copyright (c) 2026 Sentinel Team
// Sentinel - on-device credential and encryption manager
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for Sentinel using the Cobra
// library. It defines the root command, its persistent flags, and the
// startup sequence: configuration, i18n, the protected store and the
// security engine.

package cli

import (
	"errors"
	"fmt"
	"os"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/sentinel/buildvars"
	"github.com/toeirei/sentinel/internal/authgate"
	"github.com/toeirei/sentinel/internal/config"
	"github.com/toeirei/sentinel/internal/engine"
	"github.com/toeirei/sentinel/internal/i18n"
	"github.com/toeirei/sentinel/internal/keystore"
	"github.com/toeirei/sentinel/internal/logging"
)

var version = "dev" // this will be set by the linker

var (
	cfgFile         string
	verbose         bool
	showVersionFlag bool

	appConfig config.Config
	app       *engine.Engine
)

// setupDefaultServices loads configuration, initializes i18n, opens the
// protected store and builds the engine. It runs before every subcommand.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	if err != nil {
		// A "file not found" error is expected on first run: create a
		// default config so subsequent runs have a persisted file.
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
				log.Warnf("Warning: could not write default config file: %v", writeErr)
			}
		} else {
			return fmt.Errorf("error loading config: %w", err)
		}
	}

	i18n.Init(appConfig.Language)

	if verbose {
		logging.SetVerbose(true)
		keystore.SetDebug(true)
	}

	store, err := keystore.New(appConfig.Database.Type, appConfig.Database.Dsn)
	if err != nil {
		return errors.New(i18n.T("cli.error_init_db", err))
	}

	// The terminal challenger is the default platform boundary; its
	// passcode verification goes through the engine so the enrolled
	// digest stays inside the protected store.
	challenger := authgate.NewTerminalChallenger(nil)
	app, err = engine.New(appConfig, store, challenger)
	if err != nil {
		_ = store.Close()
		return err
	}
	challenger.Verify = app.VerifyPasscode

	return nil
}

// Execute runs the CLI entrypoint. The root main package should call this
// function and handle process exit.
func Execute() error {
	rootCmd := NewRootCmd()

	defer func() {
		if app != nil {
			if err := app.Close(); err != nil {
				log.Errorf("Error closing the protected store: %v", err)
			}
		}
	}()

	return rootCmd.Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}
		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command. Tests use it
// to build fresh, isolated command trees.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Sentinel is an on-device credential and encryption manager.",
		Long: `Sentinel keeps secrets in a device-protected store gated by the
device lock state, performs authenticated encryption under cached
per-identifier keys, wraps the platform authentication challenge,
and scans the execution environment for tamper and debugger signals.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Println(buildvars.VersionOrDefault(version))
				os.Exit(0)
			}
			return setupDefaultServices(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a sentinel.yaml config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&showVersionFlag, "version", false, "Print the version and exit")
	cmd.PersistentFlags().String("database.type", "sqlite", "Protected store backend")
	cmd.PersistentFlags().String("database.dsn", "./sentinel.db", "Protected store DSN")

	cmd.AddCommand(
		newStoreCmd(),
		newRetrieveCmd(),
		newDeleteCmd(),
		newLockCmd(),
		newUnlockCmd(),
		newEnrollPasscodeCmd(),
		newEncryptCmd(),
		newDecryptCmd(),
		newRandomCmd(),
		newAuthCmd(),
		newStatusCmd(),
		newScanCmd(),
		newAuditCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the Sentinel version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildvars.VersionOrDefault(version))
		},
	}
}
