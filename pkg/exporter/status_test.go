package exporter

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry("queues")
	r.Register("queues")

	got, ok := r.Get("queues")
	assert.True(t, ok)
	assert.Equal(t, "queues", got.Name)
	assert.Len(t, r.All(), 1)
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_Record(t *testing.T) {
	r := NewRegistry("queues")
	start := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Record("queues", start, start.Add(2*time.Second), errors.New("timeout")))
	got, _ := r.Get("queues")
	assert.Equal(t, 1, got.Runs)
	assert.Equal(t, 1, got.Failures)
	assert.Equal(t, "timeout", got.LastError)
	assert.False(t, got.Succeeded())
	assert.Equal(t, 2*time.Second, got.Duration)

	require.NoError(t, r.Record("queues", start.Add(time.Minute), start.Add(61*time.Second), nil))
	got, _ = r.Get("queues")
	assert.Equal(t, 2, got.Runs)
	assert.Equal(t, 1, got.Failures)
	assert.Empty(t, got.LastError)
	assert.True(t, got.Succeeded())
	assert.Equal(t, start.Add(61*time.Second), got.LastSuccess)
}

func TestRegistry_Record_NotFound(t *testing.T) {
	r := NewRegistry()

	err := r.Record("nonexistent", time.Now(), time.Now(), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRegistry_AllSucceeded(t *testing.T) {
	assert.False(t, NewRegistry().AllSucceeded())

	r := NewRegistry("queues", "builds")
	now := time.Now()
	require.NoError(t, r.Record("queues", now, now, nil))
	assert.False(t, r.AllSucceeded())

	require.NoError(t, r.Record("builds", now, now, nil))
	assert.True(t, r.AllSucceeded())

	// A later failure does not make the exporter unready.
	require.NoError(t, r.Record("builds", now, now, errors.New("boom")))
	assert.True(t, r.AllSucceeded())

	names := []string{}
	for _, s := range r.All() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"builds", "queues"}, names)
}
