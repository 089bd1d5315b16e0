package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "sweatpoints_default", cfg.Database.Name)

	assert.Equal(t, 480, cfg.Policy.MaxWorkoutDurationMinutes)
	assert.Equal(t, 1, cfg.Policy.MinActionPoints)
	assert.Equal(t, 1000, cfg.Policy.MaxActionPoints)
	assert.Equal(t, 100, cfg.Policy.MaxSessionNameLength)
}
