/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/codec"
	"github.com/ssargent/slotdb/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty table file from the configured fields",
	Long: `Create an empty table file holding only the header for the fields
listed in the configuration.

With --write-config a configuration file with a generated API key is
written first if none exists.

Examples:
  slotdb init
  slotdb init --data-file=./data/hotels.db --force
  slotdb init --write-config`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		writeConfig, _ := cmd.Flags().GetBool("write-config")

		if writeConfig {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}
			if config.ConfigExists(configPath) {
				cmd.Printf("Config already exists: %s\n", configPath)
			} else {
				bootstrapped, err := config.BootstrapConfig(configPath, cfg.DataFile)
				if err != nil {
					return err
				}
				cfg = bootstrapped
				cmd.Printf("Config written: %s\n", configPath)
				cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			}
		}

		if err := createTableFile(cmd, force); err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists, use --force to replace it", cfg.DataFile)
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Replace an existing table file")
	initCmd.Flags().Bool("write-config", false, "Write a config file with a generated API key if none exists")
}

// createTableFile writes an empty table file for the configured fields.
func createTableFile(cmd *cobra.Command, overwrite bool) error {
	columns, err := cfg.Columns()
	if err != nil {
		return fmt.Errorf("invalid field configuration: %w", err)
	}
	if err := codec.Create(cfg.DataFile, columns, overwrite); err != nil {
		return fmt.Errorf("creating table file: %w", err)
	}
	cmd.Printf("Created %s with %d fields\n", cfg.DataFile, len(columns))
	return nil
}
