// Package mega wraps MEGA-CC, the command line build of MEGA, for
// phylogenetic tree reconstruction from a protein alignment.
package mega

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

//go:embed mao/*.mao.tmpl
var maoTemplates embed.FS

// Config holds the knobs for a megacc invocation.
type Config struct {
	Exec string

	// TreeType selects the reconstruction method: "NJ" or "ML".
	TreeType string

	// Bootstrap is the number of bootstrap replications written into the
	// analysis options file.
	Bootstrap int
}

// Default reconstructs a neighbor-joining tree with 500 bootstrap
// replications.
var Default = Config{
	Exec:      "megacc",
	TreeType:  "NJ",
	Bootstrap: 500,
}

// WriteAnalysisOptions renders the .mao analysis options file for the
// configured tree type into dir and returns its path.
func (conf Config) WriteAnalysisOptions(dir string) (string, error) {
	name := strings.ToLower(conf.TreeType)
	tmpl, err := template.ParseFS(maoTemplates, "mao/"+name+".mao.tmpl")
	if err != nil {
		return "", fmt.Errorf("no analysis options template for tree type %q: %w", conf.TreeType, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%d.mao", name, conf.Bootstrap))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create analysis options file: %w", err)
	}
	defer f.Close()

	data := struct{ Bootstrap int }{Bootstrap: conf.Bootstrap}
	if err := tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("failed to render analysis options file: %w", err)
	}
	return path, nil
}

// Run reconstructs a tree from the alignment and returns the path of the
// Newick file megacc wrote. MEGA-CC does not always honor the requested
// output name: when the .nwk file is absent, the .mega sibling is tried.
func (conf Config) Run(ctx context.Context, alignment, output string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	maoPath, err := conf.WriteAnalysisOptions(filepath.Dir(output))
	if err != nil {
		return "", err
	}

	args := []string{"-a", maoPath, "-d", alignment, "-o", output}
	logger.Info("Generating phylogenetic tree with MEGA-CC.",
		"tree_type", conf.TreeType, "bootstrap", conf.Bootstrap, "alignment", alignment)
	logger.Debug("megacc command.", "exec", conf.Exec, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, conf.Exec, args...)
	out, err := cmd.CombinedOutput()
	logger.Debug("megacc output.", "output", strings.TrimSpace(string(out)))
	if err != nil {
		return "", fmt.Errorf("megacc failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	result, err := resolveOutput(output)
	if err != nil {
		return "", err
	}
	logger.Info("Phylogenetic tree written.", "path", result)
	return result, nil
}

// resolveOutput locates the tree file megacc actually produced.
func resolveOutput(requested string) (string, error) {
	if _, err := os.Stat(requested); err == nil {
		return requested, nil
	}
	alternative := strings.TrimSuffix(requested, filepath.Ext(requested)) + ".mega"
	if _, err := os.Stat(alternative); err == nil {
		return alternative, nil
	}
	// Consensus trees land in a "<base>_consensus.nwk" sibling when
	// bootstrapping is on.
	consensus := strings.TrimSuffix(requested, filepath.Ext(requested)) + "_consensus.nwk"
	if _, err := os.Stat(consensus); err == nil {
		return consensus, nil
	}
	return "", fmt.Errorf("megacc did not produce the output file %s", requested)
}
