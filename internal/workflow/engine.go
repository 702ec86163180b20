package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sqlpilot/sqlpilot/internal/observability"
)

const defaultMaxSteps = 50

// Engine interprets a compiled graph: it dispatches node invocations in
// dependency order, merges their partial updates, evaluates routers, and
// joins fan-out branches before returning. The engine holds no per-run
// state, so one instance serves concurrent runs.
type Engine struct {
	graph    *Graph
	maxSteps int
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxSteps caps the total node invocations per run. The router cycle
// is already bounded by the retry budget; the cap is a backstop against
// misbuilt graphs.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		if maxSteps > 0 {
			e.maxSteps = maxSteps
		}
	}
}

func NewEngine(graph *Graph, logger *slog.Logger, opts ...EngineOption) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	engine := &Engine{graph: graph, maxSteps: defaultMaxSteps, logger: logger}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

type nodeResult struct {
	id     string
	update Update
	err    error
}

// Run executes the graph to completion and returns the final state, or
// the first node failure. Execution proceeds in waves: every ready node
// runs against the same post-merge snapshot, siblings of a fan-out run
// concurrently, and the wave is joined before any update merges. A
// failure anywhere aborts the run after the join; no successor of the
// current wave is scheduled.
func (e *Engine) Run(ctx context.Context, initial State) (State, error) {
	state := initial
	frontier := []string{e.graph.entry}
	var steps int

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return state, NewError(KindInternal, "", "run canceled", err)
		}
		steps += len(frontier)
		if steps > e.maxSteps {
			return state, NewError(KindInternal, "",
				fmt.Sprintf("maximum execution steps (%d) exceeded", e.maxSteps), nil)
		}

		results := e.runWave(ctx, state, frontier)

		// First failure in branch-declaration order wins.
		for _, result := range results {
			if result.err != nil {
				return state, e.wrapStepError(result.id, result.err)
			}
		}

		// Two sibling branches writing the same field is a construction
		// defect, not a race to resolve silently.
		if len(results) > 1 {
			writtenBy := make(map[string]string)
			for _, result := range results {
				for _, field := range result.update.Fields() {
					if prev, conflict := writtenBy[field]; conflict {
						return state, NewError(KindInternal, result.id,
							fmt.Sprintf("fan-out branches %q and %q both write field %q", prev, result.id, field), nil)
					}
					writtenBy[field] = result.id
				}
			}
		}

		for _, result := range results {
			state.Apply(result.update)
		}

		next, err := e.nextFrontier(state, frontier)
		if err != nil {
			return state, err
		}
		frontier = next
	}
	return state, nil
}

func (e *Engine) runWave(ctx context.Context, state State, frontier []string) []nodeResult {
	results := make([]nodeResult, len(frontier))
	if len(frontier) == 1 {
		results[0] = e.runNode(ctx, state, frontier[0])
		return results
	}
	var wg sync.WaitGroup
	for i, id := range frontier {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = e.runNode(ctx, state, id)
		}(i, id)
	}
	wg.Wait()
	return results
}

func (e *Engine) runNode(ctx context.Context, state State, id string) nodeResult {
	n, ok := e.graph.nodes[id]
	if !ok {
		return nodeResult{id: id, err: NewError(KindInternal, id, "node not found", nil)}
	}
	start := time.Now()
	update, err := n.fn(ctx, state)
	observability.ObserveWorkflowStep(id, time.Since(start), err == nil)
	if err != nil {
		e.logger.ErrorContext(ctx, "workflow step failed",
			slog.String("step", id),
			slog.Any("error", err),
		)
		return nodeResult{id: id, err: err}
	}
	e.logger.DebugContext(ctx, "workflow step completed",
		slog.String("step", id),
		slog.String("duration", time.Since(start).String()),
	)
	return nodeResult{id: id, update: update}
}

// nextFrontier computes the successors of a completed wave against the
// post-merge state. Routers pick exactly one declared candidate;
// unconditional edges all fan out. End targets finish their branch.
func (e *Engine) nextFrontier(state State, frontier []string) ([]string, error) {
	var next []string
	seen := make(map[string]struct{})
	appendNode := func(id string) {
		if id == End {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}

	for _, id := range frontier {
		if r, ok := e.graph.routers[id]; ok {
			target := r.fn(state)
			if _, allowed := r.candidates[target]; !allowed {
				return nil, NewError(KindInternal, id,
					fmt.Sprintf("router picked undeclared target %q", target), nil)
			}
			appendNode(target)
			continue
		}
		for _, successor := range e.graph.nodes[id].successors {
			appendNode(successor)
		}
	}
	return next, nil
}

func (e *Engine) wrapStepError(id string, err error) error {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		if wfErr.Step == "" {
			wfErr.Step = id
		}
		return wfErr
	}
	return NewError(KindWorkflow, id, "step failed", err)
}
