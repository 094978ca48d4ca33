package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/config"
	"github.com/prolink-bio/prolink/internal/pipeline"
)

func newTask(t *testing.T) *pipeline.Task {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "results_2026-08-29")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "WP_1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WP_1", "tree.nwk"), []byte("(A,B);\n"), 0644))
	return &pipeline.Task{
		Dir:     dir,
		Config:  config.Default(),
		Outputs: pipeline.NewOutputStore(),
	}
}

func TestArchive_WritesSummaryAndZip(t *testing.T) {
	t.Parallel()

	task := newTask(t)
	task.Outputs.Set("search.WP_1", cty.ObjectVal(map[string]cty.Value{
		"hits": cty.NumberIntVal(42),
	}))

	out, err := onRunArchive(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.True, out.GetAttr("zipped"))
	assert.Equal(t, cty.StringVal("results_2026-08-29.zip"), out.GetAttr("zip"))
	assert.Equal(t, cty.NumberIntVal(2), out.GetAttr("files"))

	var summary map[string]map[string]float64
	data, err := os.ReadFile(filepath.Join(task.Dir, SummaryFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, float64(42), summary["search.WP_1"]["hits"])

	zr, err := zip.OpenReader(task.Dir + ".zip")
	require.NoError(t, err)
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"results_2026-08-29/WP_1/tree.nwk",
		"results_2026-08-29/summary.json",
	}, names)
}

func TestArchive_ZipDisabled(t *testing.T) {
	t.Parallel()

	task := newTask(t)
	task.Config.Output.Zip = false

	out, err := onRunArchive(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.False, out.GetAttr("zipped"))
	_, err = os.Stat(task.Dir + ".zip")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(task.Dir, SummaryFile))
	assert.NoError(t, err)
}
