/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/config"
)

const serviceName = "slotdb.service"

// runCommand runs a system command with the process's stdout and stderr
var runCommand = func(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage slotdb as a systemd service",
	Long: `Manage slotdb as a systemd service. The unit runs 'slotdb up' with the
given configuration, so the table file is created on first start.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install slotdb as a systemd service",
	Long: `Install slotdb as a systemd service.

This will:
- Create or use the existing configuration
- Write the systemd unit file
- Enable and optionally start the service

Examples:
  sudo slotdb service install
  sudo slotdb service install --config /etc/slotdb/config.yaml --user slotdb`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		user, _ := cmd.Flags().GetString("user")
		binary, _ := cmd.Flags().GetString("binary")
		unitDir, _ := cmd.Flags().GetString("unit-dir")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		absConfig, err := filepath.Abs(configPath)
		if err != nil {
			return err
		}
		absData, err := filepath.Abs(cfg.DataFile)
		if err != nil {
			return err
		}
		if binary == "" {
			if binary, err = os.Executable(); err != nil {
				return fmt.Errorf("locating slotdb binary: %w", err)
			}
		}

		unitPath := filepath.Join(unitDir, serviceName)
		unit := systemdUnit(binary, absConfig, absData, user)
		if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
			return fmt.Errorf("writing unit file: %w", err)
		}
		cmd.Printf("Created systemd unit: %s\n", unitPath)

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("reloading systemd: %w", err)
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return fmt.Errorf("enabling service: %w", err)
		}
		cmd.Printf("Service enabled\n")

		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return fmt.Errorf("starting service: %w", err)
			}
			cmd.Printf("Service started\n")
		} else {
			cmd.Printf("To start the service: sudo systemctl start %s\n", serviceName)
		}
		cmd.Printf("Config: %s\n", absConfig)
		cmd.Printf("Data: %s\n", absData)
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// systemctlCmd builds a service subcommand that runs one systemctl action
func systemctlCmd(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runSystemctlCommand(action, serviceName); err != nil {
				return fmt.Errorf("systemctl %s: %w", action, err)
			}
			if done != "" {
				cmd.Printf("%s\n", done)
			}
			return nil
		},
	}
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show slotdb service logs",
	Long: `Show slotdb service logs using journalctl.

Examples:
  slotdb service logs
  slotdb service logs -f  # Follow logs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", serviceName}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}
		return runCommand("journalctl", journalArgs...)
	},
}

// uninstallServiceCmd represents the service uninstall command
var uninstallServiceCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the slotdb service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		unitDir, _ := cmd.Flags().GetString("unit-dir")

		// Already stopped is fine.
		_ = runSystemctlCommand("stop", serviceName)
		if err := runSystemctlCommand("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}

		unitPath := filepath.Join(unitDir, serviceName)
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("reloading systemd: %w", err)
		}

		cmd.Printf("Service uninstalled\n")
		cmd.Printf("Note: configuration and table file were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the slotdb service", "Service started"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the slotdb service", "Service stopped"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the slotdb service", "Service restarted"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show slotdb service status", ""))
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallServiceCmd)

	serviceCmd.PersistentFlags().String("unit-dir", "/etc/systemd/system", "Directory for the systemd unit file")

	installServiceCmd.Flags().String("user", "slotdb", "User to run the service as")
	installServiceCmd.Flags().String("binary", "", "Path of the slotdb binary (default: this executable)")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file that runs 'slotdb up' as user
func systemdUnit(binary, configPath, dataFile, user string) string {
	return fmt.Sprintf(`[Unit]
Description=slotdb record server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s up --config %s --data-file %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, dataFile, filepath.Dir(dataFile), filepath.Dir(configPath))
}
