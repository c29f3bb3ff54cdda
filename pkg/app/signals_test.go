package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/config"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newConfiguredApp(t *testing.T, content string) (*App, string, *lockedBuffer) {
	t.Helper()
	lp := newFakeLaunchpad(t)

	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	write := func(extra string) {
		require.NoError(t, os.WriteFile(path, []byte("launchpad_url: "+lp.URL+"\n"+extra), 0o600))
	}
	write(content)

	config.SetFlags(&config.Flags{ConfigFile: path})
	t.Cleanup(func() { config.SetFlags(nil) })
	cfg, err := config.Reload()
	require.NoError(t, err)

	var logs lockedBuffer
	log := logrus.New()
	log.SetOutput(&logs)

	a, err := New(cfg, log)
	require.NoError(t, err)
	return a, path, &logs
}

func TestApp_HandleSignals(t *testing.T) {
	a, path, logs := newConfiguredApp(t, "series: [noble]\n")

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- a.HandleSignals(ctx, sigs) }()

	sigs <- syscall.SIGUSR1
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Goroutine dump")
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("launchpad_url: "+a.CurrentConfig().LaunchpadURL+"\nseries: [plucky]\n"), 0o600))
	sigs <- syscall.SIGHUP
	assert.Eventually(t, func() bool {
		series := a.CurrentConfig().Series
		return len(series) == 1 && series[0] == "plucky"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("refresh_interval: 10ms\n"), 0o600))
	sigs <- syscall.SIGHUP
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "keeping the current one")
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"plucky"}, a.CurrentConfig().Series)

	cancel()
	require.NoError(t, <-done)
}

func TestApp_WatchConfig(t *testing.T) {
	a, path, _ := newConfiguredApp(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.WatchConfig(ctx) }()

	lpURL := a.CurrentConfig().LaunchpadURL
	assert.Eventually(t, func() bool {
		// Rewrite until the watcher has been set up and sees a change.
		_ = os.WriteFile(path, []byte("launchpad_url: "+lpURL+"\ndebug: true\n"), 0o600)
		return a.CurrentConfig().Debug
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, logrus.DebugLevel, a.Log.GetLevel())

	cancel()
	require.NoError(t, <-done)
}

func TestApp_WatchConfigWithoutDirectory(t *testing.T) {
	a, _, _ := newConfiguredApp(t, "")
	t.Setenv("LAUNCHPAD_EXPORTER_CONFIG_PATH", filepath.Join(t.TempDir(), "missing"))

	cfg, err := config.Load()
	require.NoError(t, err)
	a.Reload(cfg)

	assert.NoError(t, a.WatchConfig(context.Background()))
}
