/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/config"
	"github.com/ssargent/slotdb/pkg/coordinator"
	"github.com/ssargent/slotdb/pkg/di"
	"github.com/ssargent/slotdb/pkg/logging"
	"github.com/ssargent/slotdb/pkg/store"
)

var (
	container *di.Container
	cfg       *config.Config
	logger    *logging.Logger
)

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slotdb",
	Short: "slotdb - record store with per-record locks",
	Long: `slotdb serves a single table stored in a fixed-layout binary file.

Clients lock a record before changing it, and a change based on an
out-of-date read is refused so no update is silently lost.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			return nil
		}
		return logger.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().String("data-file", "", "Table file, overrides data_file in the config")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// setup loads the config, applies the persistent flag overrides and builds
// the logger.
func setup(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	loaded, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-file") {
		loaded.DataFile, _ = cmd.Flags().GetString("data-file")
	}
	if cmd.Flags().Changed("log-level") {
		loaded.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}

	l, err := logging.New(logging.Config{
		Level:  loaded.Logging.Level,
		Format: loaded.Logging.Format,
		Dir:    loaded.Logging.Dir,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg = loaded
	logger = l
	return nil
}

// bootstrap writes a config with a generated API key when none exists at the
// --config path, then runs setup.
func bootstrap(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !config.ConfigExists(configPath) {
		dataFile, _ := cmd.Flags().GetString("data-file")
		created, err := config.BootstrapConfig(configPath, dataFile)
		if err != nil {
			return err
		}
		cmd.Printf("Configuration created at %s\n", configPath)
		if printKeys, _ := cmd.Flags().GetBool("print-keys"); printKeys {
			cmd.Printf("API key: %s\n", created.Security.APIKey)
		}
	}
	return setup(cmd)
}

// loadConfig reads the config at path. With no path, the default location is
// used if it exists and built-in defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetDefaultConfigPath()
		if !config.ConfigExists(path) {
			return config.DefaultConfig(), nil
		}
	}
	return config.LoadConfig(path)
}

// openCoordinator loads the configured table file
func openCoordinator(cmd *cobra.Command) (*coordinator.Coordinator, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}

	opts, err := cfg.SchemaOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid field configuration: %w", err)
	}

	ctx := cmd.Context()
	opener := container.GetTableFactory().CreateTableOpener()
	coord, err := opener.OpenTable(ctx, store.TableConfig{
		Path:     cfg.DataFile,
		Schema:   opts,
		Progress: newLoadProgress(ctx, logger.Logger),
		Logger:   logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		coord.ShutDown()
		return nil, fmt.Errorf("loading %s: %w", cfg.DataFile, ctx.Err())
	}
	return coord, nil
}
