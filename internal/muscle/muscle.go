// Package muscle wraps the MUSCLE v5 multiple sequence aligner.
package muscle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// Config holds the knobs for a muscle invocation.
type Config struct {
	Exec string

	// Super5 uses the Super5 algorithm, which scales to the thousands of
	// sequences a homology search produces.
	Super5 bool
}

// Default aligns with the Super5 algorithm.
var Default = Config{
	Exec:   "muscle",
	Super5: true,
}

// Run aligns the sequences in input and writes the alignment to output in
// FASTA format.
func (conf Config) Run(ctx context.Context, input, output string) error {
	logger := ctxlog.FromContext(ctx)

	args := conf.Args(input, output)
	logger.Info("Aligning sequences with MUSCLE.", "input", input)
	logger.Debug("muscle command.", "exec", conf.Exec, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, conf.Exec, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("muscle failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("muscle produced no alignment: %w", err)
	}
	return nil
}

// Args returns the argument list Run would use, for logging and tests.
func (conf Config) Args(input, output string) []string {
	if conf.Super5 {
		return []string{"-super5", input, "-output", output}
	}
	return []string{"-align", input, "-output", output}
}
