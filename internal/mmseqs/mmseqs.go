// Package mmseqs wraps the MMseqs2 easy-cluster workflow and the smart
// clustering loop that steers the cluster count into a configured window.
package mmseqs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// Config holds the knobs for an mmseqs easy-cluster invocation.
type Config struct {
	Exec     string
	MinSeqID float64
	Coverage float64
}

// Default is a ready-to-use configuration at the pipeline's standard
// identity and coverage thresholds.
var Default = Config{
	Exec:     "mmseqs",
	MinSeqID: 0.5,
	Coverage: 0.8,
}

// Result describes one finished clustering run.
type Result struct {
	// Clusters maps each representative accession to its member accessions,
	// representative included.
	Clusters map[string][]string

	// RepSeqFile is the FASTA file of representative sequences produced by
	// mmseqs.
	RepSeqFile string

	// MinSeqID is the identity threshold that produced this result. Smart
	// clustering may move it away from the configured starting point.
	MinSeqID float64
}

// Run executes mmseqs easy-cluster on the input FASTA file. Output files are
// written under prefix; a scratch directory is created next to it.
func (conf Config) Run(ctx context.Context, input, prefix string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	tmpDir := prefix + ".tmp"
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mmseqs scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	args := []string{
		"easy-cluster", input, prefix, tmpDir,
		"--min-seq-id", strconv.FormatFloat(conf.MinSeqID, 'f', 2, 64),
		"-c", strconv.FormatFloat(conf.Coverage, 'f', 2, 64),
	}
	logger.Info("Running mmseqs clustering.", "input", input, "min_seq_id", conf.MinSeqID)
	logger.Debug("mmseqs command.", "exec", conf.Exec, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, conf.Exec, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("mmseqs failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	tsv, err := os.Open(prefix + "_cluster.tsv")
	if err != nil {
		return nil, fmt.Errorf("mmseqs produced no cluster table: %w", err)
	}
	defer tsv.Close()

	clusters, err := ParseClusterTSV(tsv)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s_cluster.tsv: %w", prefix, err)
	}
	logger.Info("mmseqs clustering finished.", "clusters", len(clusters))

	return &Result{
		Clusters:   clusters,
		RepSeqFile: prefix + "_rep_seq.fasta",
		MinSeqID:   conf.MinSeqID,
	}, nil
}

// ParseClusterTSV reads the two-column representative/member table written
// by mmseqs easy-cluster.
func ParseClusterTSV(r io.Reader) (map[string][]string, error) {
	clusters := make(map[string][]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rep, member, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected two tab-separated columns", lineNo)
		}
		clusters[rep] = append(clusters[rep], member)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return clusters, nil
}

// cleanupRun removes the per-attempt output files so that a smart clustering
// retry starts from a clean prefix.
func cleanupRun(prefix string) {
	for _, suffix := range []string{"_cluster.tsv", "_rep_seq.fasta", "_all_seqs.fasta"} {
		os.Remove(prefix + suffix)
	}
}

// SmartOptions bound the smart clustering loop.
type SmartOptions struct {
	MinClusters int
	MaxClusters int
	MaxAttempts int

	// Step is how far the identity threshold moves between attempts.
	Step float64
}

// SmartRun repeats clustering, nudging the identity threshold until the
// cluster count falls inside [MinClusters, MaxClusters] or attempts run out.
// The last result is returned either way: an out-of-window clustering is
// still a usable clustering.
func (conf Config) SmartRun(ctx context.Context, input, prefix string, opts SmartOptions) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	var last *Result
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			cleanupRun(prefix)
		}
		res, err := conf.Run(ctx, input, prefix)
		if err != nil {
			return nil, err
		}
		last = res

		count := len(res.Clusters)
		next, ok := NextSeqID(conf.MinSeqID, count, opts)
		if !ok {
			logger.Info("Cluster count inside the configured window.",
				"clusters", count, "min_seq_id", conf.MinSeqID, "attempt", attempt)
			return res, nil
		}
		if next == conf.MinSeqID {
			// Threshold is pinned at its bound; retrying cannot move the count.
			logger.Warn("Identity threshold exhausted, keeping last clustering.",
				"clusters", count, "min_seq_id", conf.MinSeqID)
			return res, nil
		}
		logger.Info("Cluster count outside the window, adjusting identity threshold.",
			"clusters", count, "from", conf.MinSeqID, "to", next, "attempt", attempt)
		conf.MinSeqID = next
	}
	logger.Warn("Smart clustering attempts exhausted, keeping last clustering.",
		"clusters", len(last.Clusters), "min_seq_id", last.MinSeqID)
	return last, nil
}

// Identity thresholds outside this range stop being meaningful to mmseqs.
const (
	minSeqIDFloor   = 0.10
	minSeqIDCeiling = 0.95
)

// NextSeqID decides the identity threshold for the next smart clustering
// attempt. The second return is false when the count is already inside the
// window. A higher threshold splits clusters, a lower one merges them.
func NextSeqID(current float64, clusters int, opts SmartOptions) (float64, bool) {
	switch {
	case clusters < opts.MinClusters:
		return clamp(current+opts.Step, minSeqIDFloor, minSeqIDCeiling), true
	case clusters > opts.MaxClusters:
		return clamp(current-opts.Step, minSeqIDFloor, minSeqIDCeiling), true
	default:
		return current, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RepLabel builds the labeled representative name carrying the cluster
// marker, e.g. "WP_072607337.1_alkene_reductase_Aquibium_oceanicum_---C51".
func RepLabel(base string, cluster int) string {
	return fmt.Sprintf("%s_---C%d", base, cluster)
}
