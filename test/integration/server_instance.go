package integration

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/app"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
	"github.com/iainlane/prometheus-launchpad-exporter/pkg/logging"
)

// portCounter is used to allocate unique ports for each exporter
var portCounter int32 = 19000

// ExporterConfig holds the settings a scenario chooses
type ExporterConfig struct {
	Series      []string
	Packagesets []string
}

// ExporterInstance is an exporter running for a single scenario
type ExporterInstance struct {
	URL     string
	Port    int
	App     *app.App
	cancel  context.CancelFunc
	done    chan error
	process *exec.Cmd
	dir     string
}

// StartExporter starts an exporter against the Launchpad at launchpadURL,
// inline or from the binary depending on how the suite was started.
func StartExporter(tc *TestContext, launchpadURL string, cfg ExporterConfig) (*ExporterInstance, error) {
	dir, err := os.MkdirTemp("", "launchpad-exporter-")
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(path, []byte(configFile(launchpadURL, cfg)), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	port := int(atomic.AddInt32(&portCounter, 1))
	var instance *ExporterInstance
	if tc.InlineMode {
		instance, err = startInline(path, port)
	} else {
		instance, err = startBinary(tc.BinaryPath, path, port)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	instance.dir = dir

	// The landing page answers as soon as the server is up.
	if err := waitForURL(instance.URL+"/", 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("exporter failed to start: %w", err)
	}
	return instance, nil
}

func configFile(launchpadURL string, cfg ExporterConfig) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "launchpad_url: %s\n", launchpadURL)
	sb.WriteString("requests_per_second: 0\n")
	sb.WriteString("refresh_interval: 1s\n")
	sb.WriteString("build_status_interval: 1s\n")
	if len(cfg.Series) > 0 {
		fmt.Fprintf(&sb, "series: [%s]\n", strings.Join(cfg.Series, ", "))
	}
	if len(cfg.Packagesets) > 0 {
		fmt.Fprintf(&sb, "packagesets: [%s]\n", strings.Join(cfg.Packagesets, ", "))
	}
	return sb.String()
}

func startInline(path string, port int) (*ExporterInstance, error) {
	cfg, err := config.LoadWithFlags(&config.Flags{ConfigFile: path})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	output := io.Discard
	if os.Getenv("LAUNCHPAD_EXPORTER_DEBUG") != "" {
		output = os.Stderr
	}
	log, _, err := logging.New(logging.Options{Debug: cfg.Debug, Output: output})
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on port %d: %w", port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	instance := &ExporterInstance{
		URL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:   port,
		App:    a,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { instance.done <- a.Run(ctx, listener) }()
	return instance, nil
}

func startBinary(binaryPath, path string, port int) (*ExporterInstance, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, binaryPath, "--config", path, "-b", "127.0.0.1", "-p", strconv.Itoa(port))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return &ExporterInstance{
		URL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:    port,
		cancel:  cancel,
		process: cmd,
	}, nil
}

// Stop shuts the exporter down and removes its files
func (ei *ExporterInstance) Stop() {
	if ei.cancel != nil {
		ei.cancel()
	}
	if ei.done != nil {
		select {
		case <-ei.done:
		case <-time.After(15 * time.Second):
		}
	}
	if ei.process != nil && ei.process.Process != nil {
		_ = ei.process.Wait()
	}
	if ei.dir != "" {
		_ = os.RemoveAll(ei.dir)
	}
}
