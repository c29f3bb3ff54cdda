package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the exporter to be ready",
	Long: `Wait for the exporter to be ready by polling its readiness endpoint.

The exporter is ready once it has refreshed packagesets, upload queues and
failed builds at least once. This command will repeatedly check until the
exporter reports ready or the maximum number of retries is reached.

Example:
  prometheus-launchpad-exporter wait
  prometheus-launchpad-exporter wait --port 9000 --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		retries, _ := cmd.Flags().GetInt("retries")

		url := fmt.Sprintf("http://localhost:%d/-/ready", port)
		if err := waitForReady(cmd.OutOrStdout(), url, retries, time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Exporter did not become ready: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("port", "p", defaultPort(), "Exporter port to check")
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func defaultPort() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

func waitForReady(w io.Writer, url string, retries int, interval time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}

	_, _ = fmt.Fprintln(w, "Waiting for the exporter to be ready...")

	for i := 0; i < retries; i++ {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				_, _ = fmt.Fprintln(w)
				_, _ = fmt.Fprintln(w, "The exporter is ready!")
				return nil
			}
		}

		_, _ = fmt.Fprint(w, ".")
		time.Sleep(interval)
	}

	_, _ = fmt.Fprintln(w)
	return fmt.Errorf("not ready after %d attempts", retries)
}
