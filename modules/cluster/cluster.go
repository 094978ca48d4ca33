// Package cluster reduces the hit set to cluster representatives with
// MMseqs2 and relabels them with their cluster sizes.
package cluster

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/biogo/biogo/seq/linear"
	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/mmseqs"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// Module implements the pipeline.Module interface for this package.
type Module struct{}

// Register registers the cluster stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageCluster, &pipeline.RegisteredStage{
		Description: "Cluster the hits with MMseqs2 and keep the representatives.",
		Fn:          onRunCluster,
	})
}

func onRunCluster(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	cc := task.Config.Cluster
	conf := mmseqs.Default
	conf.MinSeqID = cc.MinSeqID
	conf.Coverage = cc.Coverage

	input := task.File(pipeline.HitsFile)
	prefix := filepath.Join(task.Dir, "mmseqs")

	var (
		result *mmseqs.Result
		err    error
	)
	if cc.Smart {
		result, err = conf.SmartRun(ctx, input, prefix, mmseqs.SmartOptions{
			MinClusters: cc.MinClusters,
			MaxClusters: cc.MaxClusters,
			MaxAttempts: cc.MaxAttempts,
			Step:        cc.Step,
		})
	} else {
		result, err = conf.Run(ctx, input, prefix)
	}
	if err != nil {
		return cty.NilVal, err
	}

	reps, err := seqio.ReadFile(result.RepSeqFile)
	if err != nil {
		return cty.NilVal, err
	}
	if len(reps) == 0 {
		return cty.NilVal, fmt.Errorf("mmseqs produced no representative sequences for %s", task.Query)
	}

	// Each representative keeps its full description, sanitized into a
	// Newick-safe label, plus the size of the cluster it stands for.
	labeled := make([]*linear.Seq, 0, len(reps))
	for _, rep := range reps {
		size := len(result.Clusters[rep.ID])
		base := seqio.SanitizeLabel(seqio.Description(rep))
		labeled = append(labeled, seqio.NewProtein(mmseqs.RepLabel(base, size), "", rep.Seq.String()))
	}
	if err := seqio.WriteFile(task.File(pipeline.ClusterFile), labeled); err != nil {
		return cty.NilVal, err
	}
	logger.Info("Cluster representatives written.",
		"query", task.Query, "clusters", len(result.Clusters), "min_seq_id", result.MinSeqID)

	return cty.ObjectVal(map[string]cty.Value{
		"clusters":   cty.NumberIntVal(int64(len(result.Clusters))),
		"min_seq_id": cty.NumberFloatVal(result.MinSeqID),
	}), nil
}
