package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/app"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/exporter"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/logging"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/ubuntu"
)

// seriesCmd represents the series command
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List the series the exporter reports on",
	Long: `List the series the exporter would report on with the current
configuration: the configured series, or every current series of the
distribution when none are configured.

Use --all to list every series of the distribution instead.

Example:
  prometheus-launchpad-exporter series
  prometheus-launchpad-exporter series --all`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := listSeries(ctx, cmd.OutOrStdout(), flagsFrom(cmd), all); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list series: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(seriesCmd)
	seriesCmd.Flags().Bool("all", false, "List every series of the distribution")
}

func listSeries(ctx context.Context, w io.Writer, flags *config.Flags, all bool) error {
	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	client, err := launchpad.NewCachedClient(app.NewClient(cfg, log), cfg.Distribution)
	if err != nil {
		return err
	}

	var series []launchpad.Series
	if all {
		series, err = client.AllSeries(ctx)
	} else {
		tracker := ubuntu.NewTracker(client, ubuntu.NewStore(), exporter.ConfigFrom(cfg).Options, log)
		series, err = tracker.SeriesToConsider(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tSTATUS")
	for _, s := range series {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Version, s.Status)
	}
	return tw.Flush()
}
