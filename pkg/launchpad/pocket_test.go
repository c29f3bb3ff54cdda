package launchpad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParsePockets(t *testing.T) {
	pockets, err := ParsePockets([]string{"Release", "proposed", "BACKPORTS"})
	require.NoError(t, err)
	assert.Equal(t, []Pocket{PocketRelease, PocketProposed, PocketBackports}, pockets)

	_, err = ParsePockets([]string{"Release", "Unstable"})
	assert.Error(t, err)
}

func TestParseQueueStatuses(t *testing.T) {
	statuses, err := ParseQueueStatuses([]string{"New", "unapproved"})
	require.NoError(t, err)
	assert.Equal(t, []QueueStatus{QueueStatusNew, QueueStatusUnapproved}, statuses)

	_, err = ParseQueueStatuses([]string{"Pending"})
	assert.Error(t, err)
}

func TestPocketYAML(t *testing.T) {
	var doc struct {
		Pockets []Pocket `yaml:"pockets"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("pockets: [Security, updates]\n"), &doc))
	assert.Equal(t, []Pocket{PocketSecurity, PocketUpdates}, doc.Pockets)

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "pockets:\n    - Security\n    - Updates\n", string(out))
}
