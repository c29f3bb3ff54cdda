package integration

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// TestContext holds what every scenario shares.
type TestContext struct {
	InlineMode bool
	BinaryPath string
	HTTPClient *http.Client
}

// NewTestContext reads the run mode from the environment.
// Modes:
//   - Binary mode: set LAUNCHPAD_EXPORTER_BINARY to the path of a built exporter
//   - Inline mode: set LAUNCHPAD_EXPORTER_INLINE=1 to run the exporter in-process
func NewTestContext() (*TestContext, error) {
	inlineMode := os.Getenv("LAUNCHPAD_EXPORTER_INLINE") == "1"
	binaryPath := os.Getenv("LAUNCHPAD_EXPORTER_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either LAUNCHPAD_EXPORTER_BINARY or LAUNCHPAD_EXPORTER_INLINE=1 is required.\n\nBinary mode:\n  go build -o prometheus-launchpad-exporter ./cmd/prometheus-launchpad-exporter\n  INTEGRATION_TEST=1 LAUNCHPAD_EXPORTER_BINARY=$(pwd)/prometheus-launchpad-exporter go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 LAUNCHPAD_EXPORTER_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("LAUNCHPAD_EXPORTER_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline exporter mode")
	}

	return &TestContext{
		InlineMode: inlineMode,
		BinaryPath: binaryPath,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// waitForURL polls url until it answers 200 or the timeout passes.
func waitForURL(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("%s did not answer 200 within %v", url, timeout)
}
