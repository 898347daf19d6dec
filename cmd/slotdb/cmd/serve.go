/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the slotdb REST API server",
	Long: `Start the REST API server over the configured table file.

Every request except /metrics and /swagger needs the X-API-Key header.
Record requests also need an X-Session-ID from POST /api/v1/sessions.

Examples:
  slotdb serve
  slotdb serve --port=9000 --api-key=my-secret-key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides the config)")
}

// runServer applies the server flag overrides and serves the table until the
// command's context ends.
func runServer(cmd *cobra.Command) error {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
	}

	if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
		return errors.New("an API key is required: pass --api-key or run 'slotdb init --write-config'")
	}

	coord, err := openCoordinator(cmd)
	if err != nil {
		return err
	}
	defer coord.ShutDown()

	cmd.Printf("Serving %s on %s:%d\n", cfg.DataFile, cfg.Bind, cfg.Port)

	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(cmd.Context(), coord, api.ServerConfig{
		Port:   cfg.Port,
		Bind:   cfg.Bind,
		APIKey: cfg.Security.APIKey,
		Logger: logger.Logger,
	})
}
