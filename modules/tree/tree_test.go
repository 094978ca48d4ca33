package tree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/config"
	"github.com/prolink-bio/prolink/internal/pipeline"
)

// stubBinary installs a fake executable on PATH for the duration of the test.
func stubBinary(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script), 0755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newTask(t *testing.T) *pipeline.Task {
	t.Helper()
	cfg := config.Default()
	cfg.ProteinName = "alkene_reductase"
	task := &pipeline.Task{
		Query:   "WP_041365644.1",
		Dir:     t.TempDir(),
		Config:  cfg,
		Outputs: pipeline.NewOutputStore(),
	}
	require.NoError(t, os.WriteFile(task.File(pipeline.AlignedFile), []byte(">A\nMKV\n"), 0644))
	return task
}

func TestTree_CleansNewickLabels(t *testing.T) {
	stubBinary(t, "megacc", `out=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  shift
done
printf '(WP_072607337.1_alkene_reductase_Aquibium_oceanicum_---C51:0.1,Escherichia_coli_---C3:0.2);\n' > "$out"
`)

	task := newTask(t)
	out, err := onRunTree(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.StringVal(pipeline.TreeFile), out.GetAttr("tree"))
	assert.Equal(t, cty.True, out.GetAttr("cleaned"))
	assert.Equal(t, cty.StringVal("NJ"), out.GetAttr("tree_type"))

	data, err := os.ReadFile(task.File(pipeline.TreeFile))
	require.NoError(t, err)
	assert.Equal(t, "(Aquibium_oceanicum_---C51:0.1,Escherichia_coli_---C3:0.2);\n", string(data))
}

func TestTree_MegaSessionSkipsCleaning(t *testing.T) {
	stubBinary(t, "megacc", `out=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  shift
done
printf '#MEGA session\n' > "${out%.nwk}.mega"
`)

	task := newTask(t)
	out, err := onRunTree(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.StringVal("tree.mega"), out.GetAttr("tree"))
	assert.Equal(t, cty.False, out.GetAttr("cleaned"))
}
