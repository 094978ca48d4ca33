package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"run.hcl"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "run.hcl", cfg.ConfigPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Empty(t, cfg.Queries)
	assert.False(t, cfg.NoZip)
}

func TestParse_ConfigFlagWinsOverPositional(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, _, err := Parse([]string{"-config", "a.hcl", "b.hcl"}, out)
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.ConfigPath)

	cfg, _, err = Parse([]string{"-c", "short.hcl"}, out)
	require.NoError(t, err)
	assert.Equal(t, "short.hcl", cfg.ConfigPath)
}

func TestParse_QueriesOverride(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, _, err := Parse([]string{"-queries", "WP_1, WP_2,,WP_3", "run.hcl"}, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"WP_1", "WP_2", "WP_3"}, cfg.Queries)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"bad log format", []string{"-log-format", "yaml", "run.hcl"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "verbose", "run.hcl"}, "invalid log-level"},
		{"setup flags conflict", []string{"-setup-only", "-skip-setup", "run.hcl"}, "mutually exclusive"},
		{"unknown flag", []string{"--nope"}, "flag provided but not defined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
