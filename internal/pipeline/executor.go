package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// Executor runs a graph's nodes concurrently, honoring dependencies.
type Executor struct {
	graph      *Graph
	registry   *Registry
	numWorkers int

	wg sync.WaitGroup
}

// NewExecutor creates an executor for the graph. Worker counts below one
// are bumped to one.
func NewExecutor(graph *Graph, registry *Registry, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{graph: graph, registry: registry, numWorkers: workers}
}

// Run executes the entire graph and returns an error if any node fails. The
// first failure cancels the run; downstream nodes are marked skipped.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	roots := e.graph.Roots()
	logger.Debug("Executor starting.", "nodes", len(e.graph.Nodes), "roots", len(roots), "workers", e.numWorkers)
	for _, n := range roots {
		readyChan <- n
	}

	e.wg.Add(len(e.graph.Nodes))
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	return e.collectFailure(ctx)
}

// worker is the processing loop of one concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for n := range readyChan {
		nodeLogger := logger.With("workerID", workerID, "nodeID", n.ID)

		if ctx.Err() != nil {
			// The node and its whole subtree are already accounted for in
			// the WaitGroup; both must be released or Run never returns.
			e.skip(n, ctx.Err())
			e.skipDependents(ctx, n)
			continue
		}

		nodeLogger.Debug("Worker picked up node.")
		n.setState(Running)

		output, err := e.runNode(ctx, n)
		if err != nil {
			nodeLogger.Error("Node execution failed.", "error", err)
			n.setState(Failed)
			n.Err = err
			cancel()
			e.skipDependents(ctx, n)
			e.wg.Done()
			continue
		}

		nodeLogger.Debug("Node execution succeeded.")
		n.Output = output
		n.Task.Outputs.Set(n.ID, output)
		n.setState(Done)

		for _, dependent := range n.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				nodeLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

func (e *Executor) runNode(ctx context.Context, n *Node) (output cty.Value, err error) {
	stage, err := e.registry.Stage(n.Stage)
	if err != nil {
		return cty.NilVal, err
	}
	return stage.Fn(ctx, n.Task)
}

// skip marks one node failed without running it. Safe to call more than
// once; only the first call counts against the WaitGroup.
func (e *Executor) skip(n *Node, cause error) {
	n.skipOnce.Do(func() {
		n.setState(Failed)
		n.Err = fmt.Errorf("skipped: %w", cause)
		e.wg.Done()
	})
}

// skipDependents recursively marks downstream nodes as skipped.
func (e *Executor) skipDependents(ctx context.Context, n *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.Dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping node due to upstream failure.", "nodeID", dependent.ID, "dependency", n.ID)
			dependent.setState(Failed)
			dependent.Err = fmt.Errorf("skipped due to upstream failure of %q", n.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// collectFailure distills failed nodes into one error wrapping the root
// cause. Skipped nodes are symptoms, not causes, and are left out.
func (e *Executor) collectFailure(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var failedNodes []string
	var rootCause error
	for _, n := range e.graph.Nodes {
		if n.State() != Failed {
			continue
		}
		logger.Error("Node failed.", "nodeID", n.ID, "error", n.Err)
		if n.Err == nil || strings.HasPrefix(n.Err.Error(), "skipped") || errors.Is(n.Err, context.Canceled) {
			continue
		}
		failedNodes = append(failedNodes, n.ID)
		if rootCause == nil {
			rootCause = n.Err
		}
	}
	if rootCause == nil {
		return nil
	}
	sort.Strings(failedNodes)
	return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCause)
}
