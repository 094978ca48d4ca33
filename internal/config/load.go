package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// hclFile mirrors the on-disk HCL layout. Every attribute is optional and
// pointer-typed so that absent values fall back to Default() instead of the
// Go zero value.
type hclFile struct {
	Queries     []string    `hcl:"queries,optional"`
	ProteinName *string     `hcl:"protein_name,optional"`
	Search      *hclSearch  `hcl:"search,block"`
	Uniprot     *hclUniprot `hcl:"uniprot,block"`
	Cluster     *hclCluster `hcl:"cluster,block"`
	Align       *hclAlign   `hcl:"align,block"`
	Tree        *hclTree    `hcl:"tree,block"`
	Output      *hclOutput  `hcl:"output,block"`
	Setup       *hclSetup   `hcl:"setup,block"`
}

type hclSearch struct {
	Database            *string  `hcl:"database,optional"`
	HitlistSize         *int     `hcl:"hitlist_size,optional"`
	Remote              *bool    `hcl:"remote,optional"`
	Evalue              *float64 `hcl:"evalue,optional"`
	ExpectedMinIdentity *float64 `hcl:"expected_min_identity,optional"`
	ExpectedMaxIdentity *float64 `hcl:"expected_max_identity,optional"`
	MaxLowIdentitySeqs  *int     `hcl:"max_low_identity_seqs,optional"`
	RemoveFragments     *bool    `hcl:"remove_fragments,optional"`
	FragmentRatio       *float64 `hcl:"fragment_ratio,optional"`
}

type hclUniprot struct {
	Check          *bool `hcl:"check,optional"`
	BlockSize      *int  `hcl:"block_size,optional"`
	TimeoutSeconds *int  `hcl:"timeout_seconds,optional"`
}

type hclCluster struct {
	Enabled     *bool    `hcl:"enabled,optional"`
	Smart       *bool    `hcl:"smart,optional"`
	MinSeqID    *float64 `hcl:"min_seq_id,optional"`
	Coverage    *float64 `hcl:"coverage,optional"`
	MinClusters *int     `hcl:"min_clusters,optional"`
	MaxClusters *int     `hcl:"max_clusters,optional"`
	MaxAttempts *int     `hcl:"max_attempts,optional"`
	Step        *float64 `hcl:"step,optional"`
}

type hclAlign struct {
	Enabled *bool `hcl:"enabled,optional"`
}

type hclTree struct {
	Enabled   *bool   `hcl:"enabled,optional"`
	Type      *string `hcl:"type,optional"`
	Bootstrap *int    `hcl:"bootstrap,optional"`
}

type hclOutput struct {
	Dir *string `hcl:"dir,optional"`
	Zip *bool   `hcl:"zip,optional"`
}

type hclSetup struct {
	ToolsDir         *string `hcl:"tools_dir,optional"`
	DatabaseDir      *string `hcl:"database_dir,optional"`
	DownloadDatabase *bool   `hcl:"download_database,optional"`
}

// Load parses the HCL file at path and returns the configuration merged
// onto the defaults. Values absent from the file keep their defaults. The
// caller validates after any command line overrides are applied.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading run configuration.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	cfg := Default()
	raw.apply(cfg)
	logger.Debug("Configuration loaded.", "queries", len(cfg.Queries))
	return cfg, nil
}

// apply overlays every attribute present in the file onto the defaults.
func (f *hclFile) apply(cfg *Config) {
	if len(f.Queries) > 0 {
		cfg.Queries = f.Queries
	}
	setString(&cfg.ProteinName, f.ProteinName)
	if s := f.Search; s != nil {
		setString(&cfg.Search.Database, s.Database)
		setInt(&cfg.Search.HitlistSize, s.HitlistSize)
		setBool(&cfg.Search.Remote, s.Remote)
		setFloat(&cfg.Search.Evalue, s.Evalue)
		setFloat(&cfg.Search.ExpectedMinIdentity, s.ExpectedMinIdentity)
		setFloat(&cfg.Search.ExpectedMaxIdentity, s.ExpectedMaxIdentity)
		setInt(&cfg.Search.MaxLowIdentitySeqs, s.MaxLowIdentitySeqs)
		setBool(&cfg.Search.RemoveFragments, s.RemoveFragments)
		setFloat(&cfg.Search.FragmentRatio, s.FragmentRatio)
	}
	if u := f.Uniprot; u != nil {
		setBool(&cfg.Uniprot.Check, u.Check)
		setInt(&cfg.Uniprot.BlockSize, u.BlockSize)
		setInt(&cfg.Uniprot.TimeoutSeconds, u.TimeoutSeconds)
	}
	if c := f.Cluster; c != nil {
		setBool(&cfg.Cluster.Enabled, c.Enabled)
		setBool(&cfg.Cluster.Smart, c.Smart)
		setFloat(&cfg.Cluster.MinSeqID, c.MinSeqID)
		setFloat(&cfg.Cluster.Coverage, c.Coverage)
		setInt(&cfg.Cluster.MinClusters, c.MinClusters)
		setInt(&cfg.Cluster.MaxClusters, c.MaxClusters)
		setInt(&cfg.Cluster.MaxAttempts, c.MaxAttempts)
		setFloat(&cfg.Cluster.Step, c.Step)
	}
	if a := f.Align; a != nil {
		setBool(&cfg.Align.Enabled, a.Enabled)
	}
	if t := f.Tree; t != nil {
		setBool(&cfg.Tree.Enabled, t.Enabled)
		setString(&cfg.Tree.Type, t.Type)
		setInt(&cfg.Tree.Bootstrap, t.Bootstrap)
	}
	if o := f.Output; o != nil {
		setString(&cfg.Output.Dir, o.Dir)
		setBool(&cfg.Output.Zip, o.Zip)
	}
	if s := f.Setup; s != nil {
		setString(&cfg.Setup.ToolsDir, s.ToolsDir)
		setString(&cfg.Setup.DatabaseDir, s.DatabaseDir)
		setBool(&cfg.Setup.DownloadDatabase, s.DownloadDatabase)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
