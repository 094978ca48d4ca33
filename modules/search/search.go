// Package search runs the blastp homology search for a query and writes the
// filtered hits as a FASTA file for the downstream stages.
package search

import (
	"context"
	"fmt"

	"github.com/biogo/biogo/seq/linear"
	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/blast"
	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// Module implements the pipeline.Module interface for this package.
type Module struct{}

// Register registers the search stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageSearch, &pipeline.RegisteredStage{
		Description: "Run a blastp homology search and filter the hits.",
		Fn:          onRunSearch,
	})
}

func onRunSearch(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	queryPath := task.File(pipeline.QueryFile)
	querySeqs, err := seqio.ReadFile(queryPath)
	if err != nil {
		return cty.NilVal, err
	}
	if len(querySeqs) == 0 {
		return cty.NilVal, fmt.Errorf("query file %s contains no sequence", queryPath)
	}

	sc := task.Config.Search
	conf := blast.Default
	conf.Database = sc.Database
	conf.HitlistSize = sc.HitlistSize
	conf.Evalue = sc.Evalue
	conf.Remote = sc.Remote

	hits, err := conf.Run(ctx, queryPath)
	if err != nil {
		return cty.NilVal, err
	}

	res := blast.Filter(hits, blast.FilterOptions{
		MinIdentity:     sc.ExpectedMinIdentity,
		MaxIdentity:     sc.ExpectedMaxIdentity,
		MaxLowIdentity:  sc.MaxLowIdentitySeqs,
		RemoveFragments: sc.RemoveFragments,
		FragmentRatio:   sc.FragmentRatio,
		QueryLen:        querySeqs[0].Len(),
	})
	logger.Info("Homology search finished.",
		"query", task.Query, "hits", len(hits), "kept", len(res.Kept),
		"too_similar", res.TooSimilar, "fragments", res.Fragments,
		"low_identity", res.LowIdentity)
	if len(res.Kept) == 0 {
		return cty.NilVal, fmt.Errorf("no hits for %s survived filtering", task.Query)
	}

	seqs := make([]*linear.Seq, 0, len(res.Kept))
	for _, h := range res.Kept {
		seqs = append(seqs, seqio.NewProtein(h.Accession, h.Title, h.Seq))
	}
	if err := seqio.WriteFile(task.File(pipeline.HitsFile), seqs); err != nil {
		return cty.NilVal, err
	}

	return cty.ObjectVal(map[string]cty.Value{
		"hits":         cty.NumberIntVal(int64(len(hits))),
		"kept":         cty.NumberIntVal(int64(len(res.Kept))),
		"too_similar":  cty.NumberIntVal(int64(res.TooSimilar)),
		"fragments":    cty.NumberIntVal(int64(res.Fragments)),
		"low_identity": cty.NumberIntVal(int64(res.LowIdentity)),
	}), nil
}
