package align

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/biogo/seq/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/config"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// stubBinary installs a fake executable on PATH for the duration of the test.
func stubBinary(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script), 0755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// An identity alignment is enough to exercise the stage wiring.
const muscleStub = `cp "$2" "$4"
`

func newTask(t *testing.T) *pipeline.Task {
	t.Helper()
	return &pipeline.Task{
		Query:   "WP_041365644.1",
		Dir:     t.TempDir(),
		Config:  config.Default(),
		Outputs: pipeline.NewOutputStore(),
	}
}

func TestAlign_UsesClusterRepresentatives(t *testing.T) {
	stubBinary(t, "muscle", muscleStub)

	task := newTask(t)
	reps := []*linear.Seq{
		seqio.NewProtein("A_---C2", "", "MKV"),
		seqio.NewProtein("B_---C1", "", "MLA"),
	}
	require.NoError(t, seqio.WriteFile(task.File(pipeline.ClusterFile), reps))

	out, err := onRunAlign(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.NumberIntVal(2), out.GetAttr("sequences"))
	aligned, err := seqio.ReadFile(task.File(pipeline.AlignedFile))
	require.NoError(t, err)
	require.Len(t, aligned, 2)
	assert.Equal(t, "A_---C2", aligned[0].ID)
}

func TestAlign_FallsBackToHits(t *testing.T) {
	stubBinary(t, "muscle", muscleStub)

	task := newTask(t)
	require.NoError(t, seqio.WriteFile(task.File(pipeline.HitsFile), []*linear.Seq{
		seqio.NewProtein("WP_1", "alkene reductase", "MKV"),
	}))

	out, err := onRunAlign(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, cty.NumberIntVal(1), out.GetAttr("sequences"))
}
