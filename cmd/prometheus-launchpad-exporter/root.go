package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/app"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/logging"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/version"
)

// rootCmd runs the exporter
var rootCmd = &cobra.Command{
	Use:     "prometheus-launchpad-exporter",
	Short:   "Export Launchpad packageset, build and upload queue metrics to Prometheus",
	Version: version.Version,
	Long: `Poll the Launchpad API and export, for every series considered:

  - the number of source packages in each packageset
  - the number of failed builds of the sources in each packageset
  - the number of uploads waiting in each upload queue

Metrics are served on http://<bind-address>:<port>/metrics.

Settings come from the config file, LAUNCHPAD_EXPORTER_* environment
variables and flags, in increasing order of precedence. SIGHUP reloads the
configuration; SIGUSR1 logs every goroutine stack.

Example:
  prometheus-launchpad-exporter --debug
  prometheus-launchpad-exporter --series noble --series plucky --packageset core`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExporter(cmd.Context(), flagsFrom(cmd)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to run exporter: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	addFlags(rootCmd)
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default "+config.DefaultConfigPath+"/"+config.ConfigFileName+")")
	flags.Bool("debug", false, "log at debug level")
	flags.StringSlice("series", nil, "series to report on, repeatable (default every current series)")
	flags.StringSlice("packageset", nil, "packageset to report on, repeatable (default all)")
	flags.String("log-directory", "", "also log to a rotated file in this directory")
	flags.String("launchpad-url", launchpad.DefaultBaseURL, "Launchpad web service root")
	flags.String("distribution", "ubuntu", "distribution to report on")

	// Local to the root command; wait has its own --port.
	cmd.Flags().StringP("bind-address", "b", "0.0.0.0", "server bind address")
	cmd.Flags().IntP("port", "p", 8000, "server listen port")
}

// flagsFrom collects the flags given on the command line. Flags left at
// their defaults do not override the config file or environment.
func flagsFrom(cmd *cobra.Command) *config.Flags {
	f := cmd.Flags()
	flags := &config.Flags{}
	flags.ConfigFile, _ = f.GetString("config")

	if f.Changed("series") {
		flags.Series, _ = f.GetStringSlice("series")
	}
	if f.Changed("packageset") {
		flags.Packagesets, _ = f.GetStringSlice("packageset")
	}

	stringFlag := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	flags.Distribution = stringFlag("distribution")
	flags.LaunchpadURL = stringFlag("launchpad-url")
	flags.BindAddress = stringFlag("bind-address")
	flags.LogDirectory = stringFlag("log-directory")

	if f.Changed("port") {
		port, _ := f.GetInt("port")
		flags.Port = &port
	}
	if f.Changed("debug") {
		debug, _ := f.GetBool("debug")
		flags.Debug = &debug
	}
	return flags
}

func runExporter(ctx context.Context, flags *config.Flags) error {
	config.SetFlags(flags)
	cfg, err := config.Reload()
	if err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{Debug: cfg.Debug, Directory: cfg.LogDirectory})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	log.WithFields(logrus.Fields{
		"version":     version.Version,
		"address":     cfg.Address(),
		"config":      cfg.ConfigFilePath(),
		"series":      cfg.Series,
		"packagesets": cfg.Packagesets,
	}).Info("Starting prometheus-launchpad-exporter")

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(ctx, nil) })
	g.Go(func() error { return a.HandleSignals(ctx, sigs) })
	g.Go(func() error { return a.WatchConfig(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Stopped")
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
