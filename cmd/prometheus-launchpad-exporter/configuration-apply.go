package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
)

// serverPattern matches the command line of a running exporter but not of
// its subcommands.
const serverPattern = `prometheus-launchpad-exporter( -|$)`

// configurationApplyCmd represents the configuration apply command
var configurationApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Signal the running exporter to apply new configuration",
	Long: `Validate the current state of the configuration file and then send
SIGHUP to the running exporter so that it reloads it.

Note that this will NOT incorporate changes to environment variables because
Linux process environments are static once a process has started. Changes to
the bind address, port, Launchpad URL, distribution, request rate and log
directory need a restart.

Use --test to validate configuration without signalling.

Example:
  prometheus-launchpad-exporter configuration apply
  prometheus-launchpad-exporter configuration apply --test`,
	Run: func(cmd *cobra.Command, args []string) {
		testMode, _ := cmd.Flags().GetBool("test")

		if err := applyConfiguration(cmd.OutOrStdout(), flagsFrom(cmd), testMode); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to apply configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationApplyCmd)
	configurationApplyCmd.Flags().Bool("test", false, "Validate configuration without signalling the exporter")
}

func applyConfiguration(w io.Writer, flags *config.Flags, testMode bool) error {
	_, _ = fmt.Fprintln(w, "Validating configuration...")

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Config file: %s\n", cfg.ConfigFilePath())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	_, _ = fmt.Fprintln(w, "Configuration is valid.")

	if testMode {
		_, _ = fmt.Fprintln(w, "Test mode: not signalling the exporter.")
		return nil
	}

	_, _ = fmt.Fprintln(w, "Sending reload signal to the exporter...")

	output, err := exec.Command("pgrep", "-f", serverPattern).Output()
	if err != nil {
		return fmt.Errorf("no running prometheus-launchpad-exporter found")
	}

	pids, err := parsePIDs(output, os.Getpid())
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return fmt.Errorf("no running prometheus-launchpad-exporter found")
	}

	for _, pid := range pids {
		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("failed to find process: %w", err)
		}
		if err := process.Signal(syscall.SIGHUP); err != nil {
			return fmt.Errorf("failed to send signal to %d: %w", pid, err)
		}
		_, _ = fmt.Fprintf(w, "Sent reload signal to process %d\n", pid)
	}

	_, _ = fmt.Fprintln(w, "The exporter will reload its configuration.")
	return nil
}

// parsePIDs reads pgrep output, skipping self.
func parsePIDs(output []byte, self int) ([]int, error) {
	var pids []int
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		pid, err := strconv.Atoi(string(line))
		if err != nil {
			return nil, fmt.Errorf("failed to parse PID: %w", err)
		}
		if pid != self {
			pids = append(pids, pid)
		}
	}
	return pids, scanner.Err()
}
