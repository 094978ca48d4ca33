// Package config defines the flat run configuration for a prolink pipeline
// run and its HCL loader. The configuration is constructed once per run,
// consumed by the pipeline builder, and discarded afterwards.
package config

import (
	"fmt"
	"strings"
)

// Config is the complete, validated configuration for a single pipeline run.
type Config struct {
	// Queries is the ordered list of protein accession identifiers to
	// process. Each query gets its own stage chain in the run graph.
	Queries []string

	// ProteinName is the name of the protein under study. It is stripped
	// from taxa labels when the final tree is cleaned. Empty disables the
	// stripping.
	ProteinName string

	Search  Search
	Uniprot Uniprot
	Cluster Cluster
	Align   Align
	Tree    Tree
	Output  Output
	Setup   Setup
}

// Search configures the blastp homology search stage.
type Search struct {
	// Database is the BLAST database to search against.
	Database string

	// HitlistSize caps the number of aligned sequences requested from blastp.
	HitlistSize int

	// Remote submits the search to the NCBI servers instead of a local database.
	Remote bool

	// Evalue is the expectation value threshold passed to blastp.
	Evalue float64

	// ExpectedMinIdentity and ExpectedMaxIdentity bound the identity window
	// (as fractions) for hits kept without further bookkeeping. Hits above
	// the maximum are discarded as near-duplicates of the query; hits below
	// the minimum are kept only up to MaxLowIdentitySeqs.
	ExpectedMinIdentity float64
	ExpectedMaxIdentity float64

	// MaxLowIdentitySeqs caps how many below-window hits are retained.
	MaxLowIdentitySeqs int

	// RemoveFragments drops hits whose aligned sequence is shorter than
	// FragmentRatio times the query length.
	RemoveFragments bool
	FragmentRatio   float64
}

// Uniprot configures the optional accession validation stage.
type Uniprot struct {
	// Check enables validation of WP accession codes against UniProt.
	Check bool

	// BlockSize is how many distinct codes are checked per batch.
	BlockSize int

	// TimeoutSeconds bounds each REST lookup.
	TimeoutSeconds int
}

// Cluster configures the MMseqs2 clustering stage.
type Cluster struct {
	Enabled bool

	// Smart re-runs clustering with an adjusted sequence identity until the
	// cluster count lands inside [MinClusters, MaxClusters].
	Smart bool

	// MinSeqID is the initial --min-seq-id passed to mmseqs.
	MinSeqID float64

	// Coverage is the -c coverage threshold passed to mmseqs.
	Coverage float64

	MinClusters int
	MaxClusters int

	// MaxAttempts bounds the smart clustering loop.
	MaxAttempts int

	// Step is how much MinSeqID moves between smart clustering attempts.
	Step float64
}

// Align configures the MUSCLE alignment stage.
type Align struct {
	Enabled bool
}

// Tree configures the MEGA-CC phylogenetic tree stage.
type Tree struct {
	Enabled bool

	// Type selects the reconstruction method: "NJ" or "ML".
	Type string

	// Bootstrap is the number of bootstrap replications.
	Bootstrap int
}

// Output configures where run artifacts land.
type Output struct {
	// Dir is the base name for the timestamped output directory.
	Dir string

	// Zip archives the output directory when the run finishes.
	Zip bool
}

// Setup configures the managed external tools and databases.
type Setup struct {
	// ToolsDir is where downloaded binaries are installed.
	ToolsDir string

	// DatabaseDir is where BLAST databases live; exported as $BLASTDB.
	DatabaseDir string

	// DownloadDatabase fetches the configured BLAST database volumes during
	// setup. Off by default: the volumes are large and a local mirror or a
	// remote search is the common case.
	DownloadDatabase bool
}

// Default returns the configuration used when an attribute is absent from
// the HCL file. The values mirror the pipeline's interactive defaults.
func Default() *Config {
	return &Config{
		Search: Search{
			Database:            "refseq_protein",
			HitlistSize:         5000,
			Remote:              true,
			Evalue:              1e-5,
			ExpectedMinIdentity: 0.35,
			ExpectedMaxIdentity: 0.95,
			MaxLowIdentitySeqs:  50,
			RemoveFragments:     true,
			FragmentRatio:       0.5,
		},
		Uniprot: Uniprot{
			Check:          false,
			BlockSize:      100,
			TimeoutSeconds: 10,
		},
		Cluster: Cluster{
			Enabled:     true,
			Smart:       true,
			MinSeqID:    0.5,
			Coverage:    0.8,
			MinClusters: 250,
			MaxClusters: 700,
			MaxAttempts: 5,
			Step:        0.1,
		},
		Align: Align{Enabled: true},
		Tree: Tree{
			Enabled:   true,
			Type:      "NJ",
			Bootstrap: 500,
		},
		Output: Output{
			Dir: "results",
			Zip: true,
		},
		Setup: Setup{
			ToolsDir:    "prolink-tools",
			DatabaseDir: "blastdb",
		},
	}
}

// Validate checks cross-field invariants after decoding. It returns the
// first violation found.
func (c *Config) Validate() error {
	if len(c.Queries) == 0 {
		return fmt.Errorf("at least one query accession is required")
	}
	for _, q := range c.Queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("query accessions must not be blank")
		}
	}
	if c.Search.HitlistSize <= 0 {
		return fmt.Errorf("search.hitlist_size must be positive, got %d", c.Search.HitlistSize)
	}
	if c.Search.ExpectedMinIdentity < 0 || c.Search.ExpectedMinIdentity > 1 {
		return fmt.Errorf("search.expected_min_identity must be in [0,1], got %g", c.Search.ExpectedMinIdentity)
	}
	if c.Search.ExpectedMaxIdentity < 0 || c.Search.ExpectedMaxIdentity > 1 {
		return fmt.Errorf("search.expected_max_identity must be in [0,1], got %g", c.Search.ExpectedMaxIdentity)
	}
	if c.Search.ExpectedMinIdentity >= c.Search.ExpectedMaxIdentity {
		return fmt.Errorf("search.expected_min_identity (%g) must be below expected_max_identity (%g)",
			c.Search.ExpectedMinIdentity, c.Search.ExpectedMaxIdentity)
	}
	if c.Search.FragmentRatio <= 0 || c.Search.FragmentRatio > 1 {
		return fmt.Errorf("search.fragment_ratio must be in (0,1], got %g", c.Search.FragmentRatio)
	}
	if c.Uniprot.BlockSize <= 0 {
		return fmt.Errorf("uniprot.block_size must be positive, got %d", c.Uniprot.BlockSize)
	}
	if c.Cluster.MinSeqID <= 0 || c.Cluster.MinSeqID >= 1 {
		return fmt.Errorf("cluster.min_seq_id must be in (0,1), got %g", c.Cluster.MinSeqID)
	}
	if c.Cluster.MinClusters > c.Cluster.MaxClusters {
		return fmt.Errorf("cluster.min_clusters (%d) must not exceed cluster.max_clusters (%d)",
			c.Cluster.MinClusters, c.Cluster.MaxClusters)
	}
	if c.Cluster.MaxAttempts <= 0 {
		return fmt.Errorf("cluster.max_attempts must be positive, got %d", c.Cluster.MaxAttempts)
	}
	if c.Cluster.Smart && c.Cluster.Step <= 0 {
		return fmt.Errorf("cluster.step must be positive when smart clustering is enabled, got %g", c.Cluster.Step)
	}
	switch strings.ToUpper(c.Tree.Type) {
	case "NJ", "ML":
		// valid
	default:
		return fmt.Errorf("tree.type must be 'NJ' or 'ML', got %q", c.Tree.Type)
	}
	if c.Tree.Bootstrap <= 0 {
		return fmt.Errorf("tree.bootstrap must be positive, got %d", c.Tree.Bootstrap)
	}
	if c.Tree.Enabled && !c.Align.Enabled {
		return fmt.Errorf("tree generation requires alignment: enable the align block")
	}
	return nil
}
