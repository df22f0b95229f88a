// File: internal/workflow/graph.go
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// GraphEnd is the reserved terminal node name.
const GraphEnd = "__END__"

// NodeFunc is one unit of work: it consumes the state and returns it,
// possibly mutated. Node functions never propagate collaborator failures;
// they convert them to state.
type NodeFunc[S any] func(ctx context.Context, state S) S

// RouterFunc maps the current state to the name of the next node. Routers are
// pure: no I/O, no mutation.
type RouterFunc[S any] func(state S) string

// edgeConfig describes the single outgoing edge of a node: either a fixed
// target or a router with a map of permitted decisions.
type edgeConfig[S any] struct {
	conditional bool
	toNode      string
	router      RouterFunc[S]
	targets     map[string]string
}

// Graph is a compiled directed graph of named nodes with one entry point.
// Execution walks nodes sequentially, consulting each node's edge to pick
// the successor, until GraphEnd.
type Graph[S any] struct {
	nodes      map[string]NodeFunc[S]
	edges      map[string]edgeConfig[S]
	entryPoint string
	compiled   bool
	logger     *zap.Logger
}

// NewGraph creates an empty graph builder.
func NewGraph[S any](logger *zap.Logger) *Graph[S] {
	return &Graph[S]{
		nodes:  make(map[string]NodeFunc[S]),
		edges:  make(map[string]edgeConfig[S]),
		logger: logger.Named("workflow"),
	}
}

// AddNode registers a named node.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) {
	g.nodes[name] = fn
}

// SetEntryPoint declares where execution starts.
func (g *Graph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// AddEdge wires an unconditional transition.
func (g *Graph[S]) AddEdge(fromNode, toNode string) {
	g.edges[fromNode] = edgeConfig[S]{toNode: toNode}
}

// AddConditionalEdges wires a router decision. The targets map constrains the
// router's decisions to declared successors; an undeclared decision is an
// execution error.
func (g *Graph[S]) AddConditionalEdges(fromNode string, router RouterFunc[S], targets map[string]string) {
	g.edges[fromNode] = edgeConfig[S]{
		conditional: true,
		router:      router,
		targets:     targets,
	}
}

// Compile validates the topology: the entry point and every edge target must
// exist. Returns the graph itself for chaining.
func (g *Graph[S]) Compile() (*Graph[S], error) {
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("entry point node %q not found", g.entryPoint)
	}
	for from, edge := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("edge source node %q not found", from)
		}
		if edge.conditional {
			for decision, target := range edge.targets {
				if target == GraphEnd {
					continue
				}
				if _, ok := g.nodes[target]; !ok {
					return nil, fmt.Errorf("edge %q -> %q (decision %q): target not found", from, target, decision)
				}
			}
		} else if edge.toNode != GraphEnd {
			if _, ok := g.nodes[edge.toNode]; !ok {
				return nil, fmt.Errorf("edge %q -> %q: target not found", from, edge.toNode)
			}
		}
	}
	g.compiled = true
	return g, nil
}

// Next resolves the successor of a node for the given state without running
// anything. The streaming executor uses this to replay the exact routing the
// compiled walk would take.
func (g *Graph[S]) Next(nodeName string, state S) (string, error) {
	edge, ok := g.edges[nodeName]
	if !ok {
		// No outgoing edge ends the walk.
		return GraphEnd, nil
	}
	if !edge.conditional {
		return edge.toNode, nil
	}

	decision := edge.router(state)
	target, ok := edge.targets[decision]
	if !ok {
		return "", fmt.Errorf("conditional edge from %q has no mapping for decision %q", nodeName, decision)
	}
	return target, nil
}

// Execute walks the graph from the entry point until GraphEnd, threading the
// state through each node. maxIterations guards against topology bugs.
func (g *Graph[S]) Execute(ctx context.Context, initialState S, maxIterations int) (S, error) {
	state := initialState
	if !g.compiled {
		return state, fmt.Errorf("graph must be compiled before execution")
	}

	current := g.entryPoint
	for i := 0; i < maxIterations; i++ {
		if current == GraphEnd {
			return state, nil
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("node %q not found in graph definition", current)
		}

		g.logger.Debug("Executing node", zap.String("node", current))
		state = node(ctx, state)

		next, err := g.Next(current, state)
		if err != nil {
			return state, err
		}
		g.logger.Debug("Transition", zap.String("from", current), zap.String("to", next))
		current = next
	}

	return state, fmt.Errorf("workflow exceeded %d iterations without reaching end", maxIterations)
}
