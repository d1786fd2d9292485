package graph

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StateGraph is a directed graph of nodes sharing a typed state.
// Nodes run one at a time; the next node is picked by a conditional edge
// when one is registered for the current node, otherwise by a static edge.
type StateGraph[S any] struct {
	nodes map[string]Node[S]

	edges []Edge

	conditionalEdges map[string]func(ctx context.Context, state S) string

	entryPoint string

	retryPolicy *RetryPolicy

	listeners []NodeListener[S]

	maxSteps int
}

// NewStateGraph creates an empty graph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
		maxSteps:         DefaultMaxSteps,
	}
}

// AddNode adds a new node to the state graph with the given name, description and function
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy for the graph
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetMaxSteps bounds node executions per invocation.
func (g *StateGraph[S]) SetMaxSteps(n int) {
	if n > 0 {
		g.maxSteps = n
	}
}

// AddListener registers a listener notified around every node.
func (g *StateGraph[S]) AddListener(l NodeListener[S]) {
	g.listeners = append(g.listeners, l)
}

// Nodes returns the registered node names.
func (g *StateGraph[S]) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	return names
}

// StateRunnable represents a compiled state graph that can be invoked
type StateRunnable[S any] struct {
	graph *StateGraph[S]
}

// Compile validates the graph and returns a runnable.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge from %s", ErrNodeNotFound, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok && e.To != END {
			return nil, fmt.Errorf("%w: edge to %s", ErrNodeNotFound, e.To)
		}
	}
	return &StateRunnable[S]{graph: g}, nil
}

// Invoke executes the compiled state graph with the given input state
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	state := initialState
	current := r.graph.entryPoint

	for steps := 0; current != END; steps++ {
		if steps >= r.graph.maxSteps {
			return state, fmt.Errorf("%w: %d", ErrMaxStepsExceeded, r.graph.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		r.notify(ctx, NodeEventStart, current, state, nil)
		out, err := r.executeNodeWithRetry(ctx, node, state)
		if err != nil {
			r.notify(ctx, NodeEventError, current, state, err)
			return state, fmt.Errorf("error in node %s: %w", current, err)
		}

		state = out
		r.notify(ctx, NodeEventComplete, current, state, nil)

		current, err = r.next(ctx, current, state)
		if err != nil {
			return state, err
		}
	}

	return state, nil
}

func (r *StateRunnable[S]) next(ctx context.Context, from string, state S) (string, error) {
	if cond, ok := r.graph.conditionalEdges[from]; ok {
		to := cond(ctx, state)
		if to == "" {
			return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
		}
		return to, nil
	}
	for _, e := range r.graph.edges {
		if e.From == from {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func (r *StateRunnable[S]) notify(ctx context.Context, event NodeEvent, name string, state S, err error) {
	for _, l := range r.graph.listeners {
		l.OnNodeEvent(ctx, event, name, state, err)
	}
}

// executeNodeWithRetry executes a node with retry logic based on the retry policy
func (r *StateRunnable[S]) executeNodeWithRetry(ctx context.Context, node Node[S], state S) (S, error) {
	policy := r.graph.retryPolicy
	if !policy.covers(node.Name) {
		policy = nil
	}
	attempts := 1
	if policy != nil {
		attempts = policy.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := node.Function(ctx, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts-1 || !isRetryableError(policy, err) {
			break
		}
		if delay := calculateBackoffDelay(policy, attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return state, ctx.Err()
			}
		}
	}
	return state, lastErr
}

func isRetryableError(policy *RetryPolicy, err error) bool {
	if policy == nil {
		return false
	}
	if len(policy.RetryableErrors) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range policy.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// calculateBackoffDelay calculates the delay for retry based on the backoff strategy
func calculateBackoffDelay(policy *RetryPolicy, attempt int) time.Duration {
	if policy == nil {
		return 0
	}
	base := policy.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	switch policy.BackoffStrategy {
	case ExponentialBackoff:
		return base * time.Duration(1<<attempt)
	case LinearBackoff:
		return base * time.Duration(attempt+1)
	default:
		return base
	}
}
