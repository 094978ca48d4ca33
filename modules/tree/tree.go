// Package tree reconstructs a phylogenetic tree from the alignment with
// MEGA-CC and rewrites its taxa labels into readable species names.
package tree

import (
	"context"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/mega"
	"github.com/prolink-bio/prolink/internal/phylo"
	"github.com/prolink-bio/prolink/internal/pipeline"
)

// Module implements the pipeline.Module interface for this package.
type Module struct{}

// Register registers the tree stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageTree, &pipeline.RegisteredStage{
		Description: "Reconstruct a phylogenetic tree with MEGA-CC.",
		Fn:          onRunTree,
	})
}

func onRunTree(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	tc := task.Config.Tree
	conf := mega.Default
	conf.TreeType = tc.Type
	conf.Bootstrap = tc.Bootstrap

	result, err := conf.Run(ctx, task.File(pipeline.AlignedFile), task.File(pipeline.TreeFile))
	if err != nil {
		return cty.NilVal, err
	}

	// MEGA-CC sometimes writes a .mega session instead of Newick; label
	// cleaning only applies to the latter.
	cleaned := false
	if filepath.Ext(result) == ".nwk" {
		if err := phylo.CleanFile(result, task.Config.ProteinName); err != nil {
			return cty.NilVal, err
		}
		cleaned = true
	} else {
		logger.Warn("Tree is not in Newick format, skipping label cleaning.",
			"query", task.Query, "path", result)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"tree":      cty.StringVal(filepath.Base(result)),
		"tree_type": cty.StringVal(conf.TreeType),
		"bootstrap": cty.NumberIntVal(int64(conf.Bootstrap)),
		"cleaned":   cty.BoolVal(cleaned),
	}), nil
}
