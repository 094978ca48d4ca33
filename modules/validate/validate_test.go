package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/biogo/biogo/seq/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/config"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/seqio"
)

func newTask(t *testing.T, seqs ...*linear.Seq) *pipeline.Task {
	t.Helper()
	task := &pipeline.Task{
		Query:   "WP_041365644.1",
		Dir:     t.TempDir(),
		Config:  config.Default(),
		Outputs: pipeline.NewOutputStore(),
	}
	require.NoError(t, seqio.WriteFile(task.File(pipeline.HitsFile), seqs))
	return task
}

func TestValidate_RemovesUnknownCodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "WP_000000001.1") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	task := newTask(t,
		seqio.NewProtein("WP_072607337.1", "alkene reductase [Aquibium oceanicum]", "MKV"),
		seqio.NewProtein("WP_000000001.1", "hypothetical protein", "MLA"),
		seqio.NewProtein("scaffold_12", "no accession here", "MTT"),
	)

	m := &Module{BaseURL: srv.URL, Client: srv.Client()}
	out, err := m.onRunValidate(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, cty.NumberIntVal(2), out.GetAttr("checked"))
	assert.Equal(t, cty.NumberIntVal(1), out.GetAttr("removed"))

	kept, err := seqio.ReadFile(task.File(pipeline.HitsFile))
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "WP_072607337.1", kept[0].ID)
	assert.Equal(t, "scaffold_12", kept[1].ID)
}

func TestValidate_AllKnownLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	task := newTask(t,
		seqio.NewProtein("WP_072607337.1", "alkene reductase", "MKV"),
		// A duplicated code is looked up once.
		seqio.NewProtein("WP_072607337.1", "alkene reductase, partial", "MKVL"),
	)

	m := &Module{BaseURL: srv.URL, Client: srv.Client()}
	out, err := m.onRunValidate(context.Background(), task)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, cty.NumberIntVal(1), out.GetAttr("checked"))
	assert.Equal(t, cty.NumberIntVal(0), out.GetAttr("removed"))
}

func TestValidate_ServerErrorFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	task := newTask(t, seqio.NewProtein("WP_072607337.1", "alkene reductase", "MKV"))

	m := &Module{BaseURL: srv.URL, Client: srv.Client()}
	_, err := m.onRunValidate(context.Background(), task)
	assert.ErrorContains(t, err, "429")
}
