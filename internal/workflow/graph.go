package workflow

import (
	"context"
	"fmt"
)

// End is the virtual terminal target. A node whose only successor is End
// finishes its branch; the run completes once every branch has done so.
const End = "__end__"

// NodeFunc executes one step against a state snapshot and returns the
// partial update to merge. Node functions must not mutate the snapshot.
type NodeFunc func(ctx context.Context, state State) (Update, error)

// RouterFunc picks exactly one successor from a node's declared
// candidates, based on the post-merge state.
type RouterFunc func(state State) string

type node struct {
	id         string
	fn         NodeFunc
	successors []string
}

type router struct {
	fn         RouterFunc
	candidates map[string]struct{}
}

// Graph is the immutable compiled topology the engine interprets.
// It is built once via Builder.Compile and safe for concurrent runs.
type Graph struct {
	nodes   map[string]*node
	routers map[string]*router
	entry   string
}

// Builder assembles a graph definition before compiling it into the
// immutable runtime form.
type Builder struct {
	graph *Graph
	errs  []error
}

func NewBuilder() *Builder {
	return &Builder{
		graph: &Graph{
			nodes:   make(map[string]*node),
			routers: make(map[string]*router),
		},
	}
}

func (b *Builder) AddNode(id string, fn NodeFunc) *Builder {
	if id == "" || id == End {
		b.errs = append(b.errs, fmt.Errorf("invalid node id %q", id))
		return b
	}
	if _, exists := b.graph.nodes[id]; exists {
		b.errs = append(b.errs, fmt.Errorf("node %q already exists", id))
		return b
	}
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("node %q has no function", id))
		return b
	}
	b.graph.nodes[id] = &node{id: id, fn: fn}
	return b
}

// AddEdge declares an unconditional edge. A node with several outgoing
// edges fans out into independent successor invocations.
func (b *Builder) AddEdge(from, to string) *Builder {
	n, ok := b.graph.nodes[from]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("edge from unknown node %q", from))
		return b
	}
	n.successors = append(n.successors, to)
	return b
}

// AddRouter attaches the conditional successor selection to a node. The
// router must return one of the listed candidates.
func (b *Builder) AddRouter(from string, fn RouterFunc, candidates ...string) *Builder {
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("router on %q has no function", from))
		return b
	}
	if len(candidates) == 0 {
		b.errs = append(b.errs, fmt.Errorf("router on %q has no candidates", from))
		return b
	}
	set := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		set[candidate] = struct{}{}
	}
	b.graph.routers[from] = &router{fn: fn, candidates: set}
	return b
}

// SetEntryPoint names the single node a run starts from.
func (b *Builder) SetEntryPoint(id string) *Builder {
	b.graph.entry = id
	return b
}

// SetFinishPoint marks a node terminal, equivalent to AddEdge(id, End).
func (b *Builder) SetFinishPoint(id string) *Builder {
	return b.AddEdge(id, End)
}

// Compile validates the topology and returns the immutable graph.
func (b *Builder) Compile() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	g := b.graph
	if g.entry == "" {
		return nil, fmt.Errorf("graph must have an entry point")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("entry point node %q does not exist", g.entry)
	}
	for id, n := range g.nodes {
		for _, successor := range n.successors {
			if successor == End {
				continue
			}
			if _, ok := g.nodes[successor]; !ok {
				return nil, fmt.Errorf("node %q has edge to unknown node %q", id, successor)
			}
		}
		if _, hasRouter := g.routers[id]; hasRouter && len(n.successors) > 0 {
			return nil, fmt.Errorf("node %q has both edges and a router", id)
		}
	}
	for from, r := range g.routers {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("router attached to unknown node %q", from)
		}
		for candidate := range r.candidates {
			if candidate == End {
				continue
			}
			if _, ok := g.nodes[candidate]; !ok {
				return nil, fmt.Errorf("router on %q targets unknown node %q", from, candidate)
			}
		}
	}
	return g, nil
}
