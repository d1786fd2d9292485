package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// DefaultMaxSteps bounds the number of node executions in one invocation.
const DefaultMaxSteps = 64

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrMaxStepsExceeded is returned when an invocation runs more nodes than allowed.
	ErrMaxStepsExceeded = errors.New("max steps exceeded")
)

// Node represents a node in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function takes the current state and returns the updated state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// BackoffStrategy defines different backoff strategies
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	ExponentialBackoff
	LinearBackoff
)

// RetryPolicy defines how to handle node failures
type RetryPolicy struct {
	MaxRetries      int
	BackoffStrategy BackoffStrategy
	// BaseDelay defaults to one second.
	BaseDelay time.Duration
	// RetryableErrors holds substrings of retryable error messages.
	// An empty list retries every error.
	RetryableErrors []string
	// Nodes limits retries to the named nodes. Empty covers every node.
	Nodes []string
}

func (p *RetryPolicy) covers(node string) bool {
	if p == nil {
		return false
	}
	if len(p.Nodes) == 0 {
		return true
	}
	for _, n := range p.Nodes {
		if n == node {
			return true
		}
	}
	return false
}

// ParseBackoffStrategy accepts "fixed", "exponential" and "linear".
// Empty means fixed.
func ParseBackoffStrategy(s string) (BackoffStrategy, error) {
	switch s {
	case "", "fixed":
		return FixedBackoff, nil
	case "exponential":
		return ExponentialBackoff, nil
	case "linear":
		return LinearBackoff, nil
	default:
		return FixedBackoff, fmt.Errorf("unknown backoff strategy %q", s)
	}
}

// NodeEvent is the kind of a node lifecycle notification.
type NodeEvent string

const (
	NodeEventStart    NodeEvent = "start"
	NodeEventComplete NodeEvent = "complete"
	NodeEventError    NodeEvent = "error"
)

// NodeListener observes node execution.
type NodeListener[S any] interface {
	OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state S, err error)
}

// NodeListenerFunc is a function adapter for NodeListener.
type NodeListenerFunc[S any] func(ctx context.Context, event NodeEvent, nodeName string, state S, err error)

// OnNodeEvent implements NodeListener.
func (f NodeListenerFunc[S]) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state S, err error) {
	f(ctx, event, nodeName, state, err)
}
