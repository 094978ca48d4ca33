package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prolink-bio/prolink/internal/pipeline"
)

const validHCL = `
queries      = ["WP_041365644.1"]
protein_name = "alkene reductase"

search {
  hitlist_size = 100
}
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestNewApp_LoadsAndRegisters(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	a := NewApp(out, &Config{
		ConfigPath: writeConfig(t, validHCL),
		LogFormat:  "text",
		LogLevel:   "error",
	})

	assert.Equal(t, []string{"WP_041365644.1"}, a.RunConfig().Queries)
	assert.Equal(t, 100, a.RunConfig().Search.HitlistSize)

	// All core stage handlers are registered.
	for _, stage := range []string{
		pipeline.StageFetch, pipeline.StageSearch, pipeline.StageValidate,
		pipeline.StageCluster, pipeline.StageAlign, pipeline.StageTree,
		pipeline.StageArchive,
	} {
		_, err := a.Registry().Stage(stage)
		assert.NoError(t, err, stage)
	}
}

func TestNewApp_AppliesOverrides(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	a := NewApp(out, &Config{
		ConfigPath: writeConfig(t, validHCL),
		Queries:    []string{"WP_9", "WP_10"},
		OutputDir:  "elsewhere",
		NoZip:      true,
		LogFormat:  "text",
		LogLevel:   "error",
	})

	cfg := a.RunConfig()
	assert.Equal(t, []string{"WP_9", "WP_10"}, cfg.Queries)
	assert.Equal(t, "elsewhere", cfg.Output.Dir)
	assert.False(t, cfg.Output.Zip)
}

func TestNewApp_PanicsOnBadConfig(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	assert.Panics(t, func() {
		NewApp(out, &Config{
			ConfigPath: filepath.Join(t.TempDir(), "missing.hcl"),
			LogFormat:  "text",
			LogLevel:   "error",
		})
	})

	// A file that parses but violates a cross-field invariant also panics.
	assert.Panics(t, func() {
		NewApp(out, &Config{
			ConfigPath: writeConfig(t, `queries = []`),
			LogFormat:  "text",
			LogLevel:   "error",
		})
	})
}
