// Package fetch retrieves the query protein sequence from the NCBI Entrez
// efetch endpoint and seeds the task directory with it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

// DefaultBaseURL is the NCBI Entrez efetch endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

// Module implements the pipeline.Module interface for this package.
type Module struct {
	// BaseURL overrides the efetch endpoint. Empty means DefaultBaseURL.
	BaseURL string

	// Client is the HTTP client used for the lookup. Nil means a client
	// with a 30 second timeout.
	Client *http.Client
}

// Register registers the fetch stage handler with the engine.
func (m *Module) Register(r *pipeline.Registry) {
	r.RegisterStage(pipeline.StageFetch, &pipeline.RegisteredStage{
		Description: "Fetch the query protein sequence from NCBI Entrez.",
		Fn:          m.onRunFetch,
	})
}

func (m *Module) onRunFetch(ctx context.Context, task *pipeline.Task) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	base := m.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	params := url.Values{}
	params.Set("db", "protein")
	params.Set("id", task.Query)
	params.Set("rettype", "fasta")
	params.Set("retmode", "text")

	logger.Info("Fetching query sequence.", "accession", task.Query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return cty.NilVal, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("efetch request for %s failed: %w", task.Query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return cty.NilVal, fmt.Errorf("efetch for %s returned %s: %s", task.Query, resp.Status, body)
	}

	seqs, err := seqio.ReadAll(resp.Body)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse efetch response for %s: %w", task.Query, err)
	}
	if len(seqs) == 0 {
		return cty.NilVal, fmt.Errorf("efetch returned no sequence for %s", task.Query)
	}

	query := seqs[0]
	if err := seqio.WriteFile(task.File(pipeline.QueryFile), seqs[:1]); err != nil {
		return cty.NilVal, err
	}
	logger.Info("Query sequence written.",
		"accession", task.Query, "length", query.Len(), "description", query.Desc)

	return cty.ObjectVal(map[string]cty.Value{
		"accession":   cty.StringVal(task.Query),
		"description": cty.StringVal(query.Desc),
		"length":      cty.NumberIntVal(int64(query.Len())),
	}), nil
}
