// Package archive finalizes a run: it writes the machine-readable run
// summary and optionally packs the output directory into a zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/pipeline"
)

// SummaryFile is the run summary written into the output directory.
const SummaryFile = "summary.json"

// Module implements the pipeline.Module interface for this package.
type Module struct{}

// Register registers the archive stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageArchive, &pipeline.RegisteredStage{
		Description: "Write the run summary and zip the output directory.",
		Fn:          onRunArchive,
	})
}

func onRunArchive(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	summaryPath := filepath.Join(task.Dir, SummaryFile)
	if err := writeSummary(summaryPath, task.Outputs.All()); err != nil {
		return cty.NilVal, err
	}
	logger.Info("Run summary written.", "path", summaryPath)

	out := map[string]cty.Value{
		"summary": cty.StringVal(SummaryFile),
		"zipped":  cty.BoolVal(false),
	}
	if task.Config.Output.Zip {
		zipPath := task.Dir + ".zip"
		files, err := zipDir(task.Dir, zipPath)
		if err != nil {
			return cty.NilVal, err
		}
		logger.Info("Output directory archived.", "path", zipPath, "files", files)
		out["zipped"] = cty.BoolVal(true)
		out["zip"] = cty.StringVal(filepath.Base(zipPath))
		out["files"] = cty.NumberIntVal(int64(files))
	}
	return cty.ObjectVal(out), nil
}

// writeSummary marshals the collected stage outputs to JSON, one entry per
// finished node.
func writeSummary(path string, outputs map[string]cty.Value) error {
	obj := cty.EmptyObjectVal
	if len(outputs) > 0 {
		vals := make(map[string]cty.Value, len(outputs))
		for id, v := range outputs {
			if v == cty.NilVal || v.IsNull() {
				continue
			}
			vals[id] = v
		}
		if len(vals) > 0 {
			obj = cty.ObjectVal(vals)
		}
	}

	data, err := ctyjson.Marshal(obj, obj.Type())
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// zipDir packs the directory into a zip file at zipPath, with entries
// rooted at the directory's base name. It returns the number of files
// written.
func zipDir(dir, zipPath string) (int, error) {
	f, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	root := filepath.Base(dir)

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk output directory: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return 0, err
		}
		w, err := zw.Create(filepath.ToSlash(filepath.Join(root, rel)))
		if err != nil {
			return 0, err
		}
		src, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			return 0, fmt.Errorf("failed to archive %s: %w", rel, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, err
	}
	return len(paths), nil
}
