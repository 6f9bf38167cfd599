package main

import (
	"testing"

	"github.com/hubastard/grove3d/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Backend = "d3d12"
	assert.ErrorContains(t, run(&cfg), "unknown backend")

	cfg = core.DefaultConfig()
	cfg.Width = 0
	assert.Error(t, run(&cfg))
}

// sandbox.toml is what -config points at; cli decodes it through the toml tags.
func TestExampleConfig(t *testing.T) {
	cfg, err := core.LoadConfig("sandbox.toml")
	require.NoError(t, err)
	assert.Equal(t, core.BackendGL, cfg.Backend)
	assert.Equal(t, "grove3d sandbox", cfg.Title)
	assert.Equal(t, 2048, cfg.ShadowMapSize)
}
