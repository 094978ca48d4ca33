package pipeline

import (
	"path/filepath"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/config"
)

// Conventional file names stages exchange inside a task directory. Each
// stage writes the file named after its product; downstream stages read it.
const (
	QueryFile   = "query.fasta"
	HitsFile    = "hits.fasta"
	ClusterFile = "clusters.fasta"
	AlignedFile = "aligned.fasta"
	TreeFile    = "tree.nwk"
)

// Task is the state a stage handler operates on. Per-query stages share one
// task per accession; run-wide stages (archive) get a task with an empty
// Query whose Dir is the run's output directory.
type Task struct {
	// Query is the protein accession this task's chain processes.
	Query string

	// Dir is the directory the stages of this task read and write.
	Dir string

	// Config is the run configuration, read-only for handlers.
	Config *config.Config

	// Outputs collects stage outputs across the whole run.
	Outputs *OutputStore
}

// File resolves a conventional stage file inside the task directory.
func (t *Task) File(name string) string {
	return filepath.Join(t.Dir, name)
}

// OutputStore is a concurrency-safe collection of stage outputs keyed by
// node ID. The executor populates it; the summary writer drains it.
type OutputStore struct {
	mu     sync.RWMutex
	values map[string]cty.Value
}

// NewOutputStore creates an empty store.
func NewOutputStore() *OutputStore {
	return &OutputStore{values: make(map[string]cty.Value)}
}

// Set records the output of a node.
func (s *OutputStore) Set(nodeID string, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[nodeID] = v
}

// Get returns the output of a node, if any.
func (s *OutputStore) Get(nodeID string) (cty.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[nodeID]
	return v, ok
}

// All returns a copy of every recorded output.
func (s *OutputStore) All() map[string]cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]cty.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
