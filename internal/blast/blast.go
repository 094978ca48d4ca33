// Package blast wraps the NCBI blastp command line tool for protein
// homology searches and parses its tabular output.
package blast

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// outFields is the column layout requested from blastp. Parse depends on
// this exact order.
const outFields = "sacc pident qcovs stitle sseq"

// Config holds the knobs for a blastp invocation.
type Config struct {
	Exec        string
	Database    string
	HitlistSize int
	Evalue      float64

	// Remote submits the search to the NCBI servers. Local searches use
	// CPUs worker threads instead.
	Remote bool
	CPUs   int
}

// Default is a ready-to-use configuration for a remote refseq_protein search.
var Default = Config{
	Exec:        "blastp",
	Database:    "refseq_protein",
	HitlistSize: 5000,
	Evalue:      1e-5,
	Remote:      true,
	CPUs:        runtime.NumCPU(),
}

// Run executes blastp with the given query FASTA file and returns the parsed
// hits. The raw tabular output is left next to the query file for inspection.
func (conf Config) Run(ctx context.Context, query string) ([]Hit, error) {
	logger := ctxlog.FromContext(ctx)

	outPath := strings.TrimSuffix(query, filepath.Ext(query)) + ".hits.tsv"
	args := []string{
		"-query", query,
		"-db", conf.Database,
		"-evalue", strconv.FormatFloat(conf.Evalue, 'g', -1, 64),
		"-max_target_seqs", strconv.Itoa(conf.HitlistSize),
		"-outfmt", "6 " + outFields,
		"-out", outPath,
	}
	if conf.Remote {
		args = append(args, "-remote")
	} else {
		args = append(args, "-num_threads", strconv.Itoa(conf.CPUs))
	}

	logger.Info("Running blastp search.", "database", conf.Database, "remote", conf.Remote, "query", query)
	logger.Debug("blastp command.", "exec", conf.Exec, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, conf.Exec, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("blastp failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("blastp produced no output file: %w", err)
	}
	defer f.Close()

	hits, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blastp output %s: %w", outPath, err)
	}
	logger.Info("blastp search finished.", "hits", len(hits))
	return hits, nil
}
