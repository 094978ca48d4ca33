package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"
)

// NodeState tracks a node through the executor.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

// Node is one stage invocation in the run graph.
type Node struct {
	// ID uniquely identifies the node, e.g. "search.WP_041365644.1".
	ID string

	// Stage is the registered stage type this node runs.
	Stage string

	// Task is the state the stage handler operates on.
	Task *Task

	// Deps and Dependents are the incoming and outgoing edges.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// Output is set by the executor after a successful run.
	Output cty.Value

	// Err records why the node failed or was skipped.
	Err error

	state    atomic.Int32
	depCount atomic.Int32
	skipOnce sync.Once
}

// State returns the node's current executor state.
func (n *Node) State() NodeState {
	return NodeState(n.state.Load())
}

func (n *Node) setState(s NodeState) {
	n.state.Store(int32(s))
}

// Graph is the dependency graph of one run.
type Graph struct {
	Nodes map[string]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a stage node. Duplicate IDs are a build bug.
func (g *Graph) AddNode(id, stage string, task *Task) (*Node, error) {
	if _, exists := g.Nodes[id]; exists {
		return nil, fmt.Errorf("duplicate node ID %q", id)
	}
	n := &Node{
		ID:         id,
		Stage:      stage,
		Task:       task,
		Deps:       make(map[string]*Node),
		Dependents: make(map[string]*Node),
	}
	g.Nodes[id] = n
	return n, nil
}

// AddEdge makes `to` depend on `from`.
func (g *Graph) AddEdge(from, to string) error {
	src, ok := g.Nodes[from]
	if !ok {
		return fmt.Errorf("source node %q not found", from)
	}
	dst, ok := g.Nodes[to]
	if !ok {
		return fmt.Errorf("destination node %q not found", to)
	}
	if from == to {
		return fmt.Errorf("self-referential edge on %q", from)
	}
	if _, dup := dst.Deps[from]; dup {
		return nil
	}
	src.Dependents[to] = dst
	dst.Deps[from] = src
	dst.depCount.Add(1)
	return nil
}

// Roots returns the nodes with no dependencies.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, n := range g.Nodes {
		if n.depCount.Load() == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// DetectCycles returns an error naming a node on a cycle, if any exists.
// The run graph is built programmatically, so a cycle is a build bug, but
// checking is cheap relative to running blastp.
func (g *Graph) DetectCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	marks := make(map[string]int, len(g.Nodes))

	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch marks[n.ID] {
		case visiting:
			return fmt.Errorf("dependency cycle detected through node %q", n.ID)
		case done:
			return nil
		}
		marks[n.ID] = visiting
		for _, dep := range n.Dependents {
			if err := visit(dep); err != nil {
				return err
			}
		}
		marks[n.ID] = done
		return nil
	}

	for _, n := range g.Nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
