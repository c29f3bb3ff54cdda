package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources: the config file, the environment and the flags given
to this command. They may not match the values used by a running exporter
that has not been reloaded since.

Config file location: /etc/launchpad-exporter/config.yml
(or $LAUNCHPAD_EXPORTER_CONFIG_PATH/config.yml, or --config)

Example:
  prometheus-launchpad-exporter configuration show
  prometheus-launchpad-exporter configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		if err := showConfiguration(cmd.OutOrStdout(), flagsFrom(cmd), output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(w io.Writer, flags *config.Flags, output string) error {
	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch output {
	case "json":
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, jsonOutput)
	case "text":
		_, _ = fmt.Fprint(w, cfg.FormatText())
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	return nil
}
