// Package validate checks the WP accession codes of the collected hits
// against the UniProt REST API and removes hits UniProt does not know.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// DefaultBaseURL is the UniProtKB REST endpoint.
const DefaultBaseURL = "https://rest.uniprot.org/uniprotkb"

// wpCode matches RefSeq non-redundant protein accessions, the only codes
// UniProt cross-references reliably.
var wpCode = regexp.MustCompile(`\bWP_\d{9}\.\d\b`)

// Module implements the pipeline.Module interface for this package.
type Module struct {
	// BaseURL overrides the UniProtKB endpoint. Empty means DefaultBaseURL.
	BaseURL string

	// Client is the HTTP client used for the lookups. Nil means a client
	// bounded by the configured per-lookup timeout.
	Client *http.Client
}

// Register registers the validate stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageValidate, &pipeline.RegisteredStage{
		Description: "Validate WP accession codes against UniProt.",
		Fn:          m.onRunValidate,
	})
}

func (m *Module) onRunValidate(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	base := m.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := m.Client
	if client == nil {
		client = &http.Client{
			Timeout: time.Duration(task.Config.Uniprot.TimeoutSeconds) * time.Second,
		}
	}

	hitsPath := task.File(pipeline.HitsFile)
	seqs, err := seqio.ReadFile(hitsPath)
	if err != nil {
		return cty.NilVal, err
	}

	// Distinct WP codes, in first-seen order so block logs are stable.
	var codes []string
	seen := make(map[string]bool)
	for _, s := range seqs {
		code := wpCode.FindString(seqio.Description(s))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	logger.Info("Validating accession codes against UniProt.",
		"query", task.Query, "sequences", len(seqs), "codes", len(codes))

	known := make(map[string]bool, len(codes))
	blockSize := task.Config.Uniprot.BlockSize
	for start := 0; start < len(codes); start += blockSize {
		end := min(start+blockSize, len(codes))
		logger.Debug("Checking accession block.",
			"query", task.Query, "from", start, "to", end)
		for _, code := range codes[start:end] {
			ok, err := m.exists(ctx, client, base, code)
			if err != nil {
				return cty.NilVal, err
			}
			known[code] = ok
		}
	}

	// Hits without a WP code pass through untouched.
	kept := seqs[:0]
	removed := 0
	for _, s := range seqs {
		code := wpCode.FindString(seqio.Description(s))
		if code != "" && !known[code] {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	if removed > 0 {
		if err := seqio.WriteFile(hitsPath, kept); err != nil {
			return cty.NilVal, err
		}
	}
	logger.Info("UniProt validation finished.",
		"query", task.Query, "checked", len(codes), "removed", removed)

	return cty.ObjectVal(map[string]cty.Value{
		"checked": cty.NumberIntVal(int64(len(codes))),
		"removed": cty.NumberIntVal(int64(removed)),
	}), nil
}

// exists reports whether UniProtKB has an entry for the accession. A 404 is
// a definitive no; other non-200 statuses are errors.
func (m *Module) exists(ctx context.Context, client *http.Client, base, code string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+code+".json", nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("uniprot lookup for %s failed: %w", code, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusBadRequest:
		return false, nil
	default:
		return false, fmt.Errorf("uniprot lookup for %s returned %s", code, resp.Status)
	}
}
