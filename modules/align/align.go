// Package align produces a multiple sequence alignment of the collected
// sequences with MUSCLE.
package align

import (
	"context"
	"os"

	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/muscle"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// Module implements the pipeline.Module interface for this package.
type Module struct{}

// Register registers the align stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageAlign, &pipeline.RegisteredStage{
		Description: "Align the sequences with MUSCLE.",
		Fn:          onRunAlign,
	})
}

func onRunAlign(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	// Cluster representatives when clustering ran, the raw hits otherwise.
	input := task.File(pipeline.ClusterFile)
	if _, err := os.Stat(input); err != nil {
		input = task.File(pipeline.HitsFile)
	}
	output := task.File(pipeline.AlignedFile)

	if err := muscle.Default.Run(ctx, input, output); err != nil {
		return cty.NilVal, err
	}

	aligned, err := seqio.ReadFile(output)
	if err != nil {
		return cty.NilVal, err
	}
	logger.Info("Alignment finished.", "query", task.Query, "sequences", len(aligned))

	return cty.ObjectVal(map[string]cty.Value{
		"sequences": cty.NumberIntVal(int64(len(aligned))),
	}), nil
}
