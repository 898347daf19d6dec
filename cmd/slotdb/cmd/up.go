/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the slotdb server",
	Long: `Bootstrap slotdb by creating the configuration and the table file if they
don't exist, then start the REST API server. This is the recommended way to
get slotdb running.

The command will:
- Create a configuration file with a generated API key if missing
- Create an empty table file for the configured fields if missing
- Start the REST API server

Examples:
  slotdb up
  slotdb up --data-file ./data/hotels.db --port 9000
  slotdb up --config ./custom-config.yaml --print-keys`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.DataFile); errors.Is(err, os.ErrNotExist) {
			if err := createTableFile(cmd, false); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("checking table file: %w", err)
		}
		return runServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)

	upCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	upCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	upCmd.Flags().String("api-key", "", "API key for authentication (overrides the config)")
	upCmd.Flags().Bool("print-keys", false, "Print a newly generated API key")
}
