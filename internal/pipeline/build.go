package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prolink-bio/prolink/internal/config"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// Stage types wired by Build. Modules register handlers under these names.
const (
	StageFetch    = "fetch"
	StageSearch   = "search"
	StageValidate = "validate"
	StageCluster  = "cluster"
	StageAlign    = "align"
	StageTree     = "tree"
	StageArchive  = "archive"
)

// ArchiveNodeID is the single run-wide archive node.
const ArchiveNodeID = "archive"

// Build constructs the run graph from the configuration: one stage chain
// per query accession, all fanning into a final archive node. Stages whose
// feature is disabled in the config are left out of the chain. Per-query
// directories are created under outDir.
func Build(cfg *config.Config, outDir string) (*Graph, error) {
	g := NewGraph()
	store := NewOutputStore()

	archiveTask := &Task{Dir: outDir, Config: cfg, Outputs: store}
	if _, err := g.AddNode(ArchiveNodeID, StageArchive, archiveTask); err != nil {
		return nil, err
	}

	for _, query := range cfg.Queries {
		dir := filepath.Join(outDir, seqio.SanitizeLabel(query))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create query dir %s: %w", dir, err)
		}
		task := &Task{Query: query, Dir: dir, Config: cfg, Outputs: store}

		stages := []string{StageFetch, StageSearch}
		if cfg.Uniprot.Check {
			stages = append(stages, StageValidate)
		}
		if cfg.Cluster.Enabled {
			stages = append(stages, StageCluster)
		}
		if cfg.Align.Enabled {
			stages = append(stages, StageAlign)
		}
		if cfg.Tree.Enabled {
			stages = append(stages, StageTree)
		}

		prev := ""
		for _, stage := range stages {
			id := fmt.Sprintf("%s.%s", stage, query)
			if _, err := g.AddNode(id, stage, task); err != nil {
				return nil, err
			}
			if prev != "" {
				if err := g.AddEdge(prev, id); err != nil {
					return nil, err
				}
			}
			prev = id
		}
		// The archive waits for the whole chain.
		if err := g.AddEdge(prev, ArchiveNodeID); err != nil {
			return nil, err
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}
