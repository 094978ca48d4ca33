package cluster

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

// The stub mimics easy-cluster: two clusters, one with two members.
const mmseqsStub = `prefix="$3"
printf 'WP_1\tWP_1\nWP_1\tWP_2\nWP_3\tWP_3\n' > "${prefix}_cluster.tsv"
printf '>WP_1 alkene reductase [Aquibium oceanicum]\nMKV\n>WP_3 alkene reductase [Escherichia coli]\nMLA\n' > "${prefix}_rep_seq.fasta"
`

func TestCluster_RelabelsRepresentatives(t *testing.T) {
	stubBinary(t, "mmseqs", mmseqsStub)

	cfg := config.Default()
	cfg.Cluster.Smart = false
	task := &pipeline.Task{
		Query:   "WP_041365644.1",
		Dir:     t.TempDir(),
		Config:  cfg,
		Outputs: pipeline.NewOutputStore(),
	}
	hits := []*linear.Seq{
		seqio.NewProtein("WP_1", "alkene reductase [Aquibium oceanicum]", "MKV"),
		seqio.NewProtein("WP_2", "alkene reductase [Aquibium oceanicum]", "MKA"),
		seqio.NewProtein("WP_3", "alkene reductase [Escherichia coli]", "MLA"),
	}
	require.NoError(t, seqio.WriteFile(task.File(pipeline.HitsFile), hits))

	out, err := onRunCluster(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.NumberIntVal(2), out.GetAttr("clusters"))
	assert.Equal(t, cty.NumberFloatVal(0.5), out.GetAttr("min_seq_id"))

	reps, err := seqio.ReadFile(task.File(pipeline.ClusterFile))
	require.NoError(t, err)
	require.Len(t, reps, 2)
	assert.Equal(t, "WP_1_alkene_reductase_Aquibium_oceanicum_---C2", reps[0].ID)
	assert.Equal(t, "WP_3_alkene_reductase_Escherichia_coli_---C1", reps[1].ID)
	assert.Equal(t, "MKV", reps[0].Seq.String())
}

func TestCluster_FailingBinaryPropagates(t *testing.T) {
	stubBinary(t, "mmseqs", `echo "easy-cluster: bad input" >&2
exit 1
`)

	cfg := config.Default()
	cfg.Cluster.Smart = false
	task := &pipeline.Task{
		Query:   "WP_041365644.1",
		Dir:     t.TempDir(),
		Config:  cfg,
		Outputs: pipeline.NewOutputStore(),
	}
	require.NoError(t, seqio.WriteFile(task.File(pipeline.HitsFile), []*linear.Seq{
		seqio.NewProtein("WP_1", "", "MKV"),
	}))

	_, err := onRunCluster(context.Background(), task)
	assert.ErrorContains(t, err, "mmseqs failed")
}
