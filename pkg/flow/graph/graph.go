package graph

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ai-companion-be/pkg/flow"
)

// Node identifiers.
const (
	NodeInputProcessing    = "input_processing"
	NodeIntentAnalysis     = "intent_analysis"
	NodeContextRetrieval   = "context_retrieval"
	NodeResponseGeneration = "response_generation"
	NodeQualityCheck       = "quality_check"
	NodeOutputFormatting   = "output_formatting"
	NodeErrorHandling      = "error_handling"

	// NodeEnd terminates a walk. It has no handler.
	NodeEnd = "end"
)

// Outcome keys an edge out of a node.
type Outcome string

const (
	OutcomeDefault Outcome = "default"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
)

// Carrier is the mutable payload threaded through a graph walk. Each node
// reads the fields earlier nodes filled in and writes its own.
type Carrier struct {
	Input    flow.UserInput
	Parsed   *flow.ParsedInput
	State    *flow.ConversationState
	Decision *flow.FlowDecision
	Response *flow.AIResponse

	QualityScore float64
	FailedNode   string
	Err          error
}

// Handler executes one node against the carrier and reports the outcome
// used to pick the outgoing edge.
type Handler func(ctx context.Context, c *Carrier) (Outcome, error)

// Node is one named step of a graph with its own retry budget.
type Node struct {
	ID         string
	Handler    Handler
	MaxRetries int
}

// Graph is a directed set of nodes with outcome-keyed edges. A walk starts
// at Start and ends when an edge leads to NodeEnd.
type Graph struct {
	Name  string
	Start string
	Nodes map[string]*Node
	Edges map[string]map[Outcome]string
}

// Stats aggregates execution outcomes across all graphs of an engine.
type Stats struct {
	TotalExecutions      int            `json:"total_executions"`
	SuccessfulExecutions int            `json:"successful_executions"`
	FailedExecutions     int            `json:"failed_executions"`
	AverageExecutionTime float64        `json:"average_execution_time"`
	NodeExecutionCounts  map[string]int `json:"node_execution_counts"`
}

// Engine walks graphs. Node failures are retried with a fixed backoff; a
// node that exhausts its budget fails the walk and the caller routes the
// carrier through the error-recovery graph instead of aborting.
type Engine struct {
	graphs  map[string]*Graph
	logger  *log.Logger
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

func NewEngine(logger *log.Logger, graphs ...*Graph) *Engine {
	e := &Engine{
		graphs:  make(map[string]*Graph, len(graphs)),
		logger:  logger,
		backoff: defaultRetryBackoff,
		sleep:   sleepContext,
		now:     time.Now,
		stats:   Stats{NodeExecutionCounts: map[string]int{}},
	}
	for _, g := range graphs {
		e.graphs[g.Name] = g
	}
	return e
}

// WithBackoff overrides the fixed inter-attempt delay, mainly for tests.
func (e *Engine) WithBackoff(d time.Duration) *Engine {
	e.backoff = d
	return e
}

// Execute walks the named graph from its start node. The carrier is
// mutated in place; the returned error means a node exhausted its retries
// or an edge was missing.
func (e *Engine) Execute(ctx context.Context, graphName string, c *Carrier) error {
	g, ok := e.graphs[graphName]
	if !ok {
		return fmt.Errorf("unknown graph: %s", graphName)
	}

	started := e.now()
	err := e.walk(ctx, g, c)
	elapsed := e.now().Sub(started).Seconds()
	e.recordExecution(elapsed, err == nil)
	return err
}

func (e *Engine) walk(ctx context.Context, g *Graph, c *Carrier) error {
	current := g.Start
	for current != "" && current != NodeEnd {
		node, ok := g.Nodes[current]
		if !ok {
			return fmt.Errorf("graph %s: unknown node: %s", g.Name, current)
		}

		outcome, err := e.executeNode(ctx, node, c)
		e.recordNode(node.ID)
		if err != nil {
			c.FailedNode = node.ID
			c.Err = err
			return fmt.Errorf("graph %s: node %s: %w", g.Name, node.ID, err)
		}

		current = nextNode(g, node.ID, outcome)
	}
	return nil
}

func (e *Engine) executeNode(ctx context.Context, node *Node, c *Carrier) (Outcome, error) {
	maxRetries := node.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		outcome, err := node.Handler(ctx, c)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if attempt < maxRetries {
			if e.logger != nil {
				e.logger.Printf("node %s failed, retry %d/%d: %v", node.ID, attempt+1, maxRetries, err)
			}
			if serr := e.sleep(ctx, e.backoff); serr != nil {
				return OutcomeError, serr
			}
		}
	}
	return OutcomeError, lastErr
}

// nextNode resolves the outgoing edge. An explicit edge for the outcome
// wins; "default" is the catch-all; an unmatched error outcome routes to
// the error-handling node and anything else terminates the walk.
func nextNode(g *Graph, nodeID string, outcome Outcome) string {
	edges := g.Edges[nodeID]
	if next, ok := edges[outcome]; ok {
		return next
	}
	if next, ok := edges[OutcomeDefault]; ok {
		return next
	}
	if outcome == OutcomeError {
		if _, ok := g.Nodes[NodeErrorHandling]; ok {
			return NodeErrorHandling
		}
	}
	return NodeEnd
}

// GetStats returns a copy of the aggregated counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.stats
	out.NodeExecutionCounts = make(map[string]int, len(e.stats.NodeExecutionCounts))
	for k, v := range e.stats.NodeExecutionCounts {
		out.NodeExecutionCounts[k] = v
	}
	return out
}

func (e *Engine) recordExecution(elapsed float64, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.TotalExecutions++
	if success {
		e.stats.SuccessfulExecutions++
	} else {
		e.stats.FailedExecutions++
	}
	total := e.stats.AverageExecutionTime * float64(e.stats.TotalExecutions-1)
	e.stats.AverageExecutionTime = (total + elapsed) / float64(e.stats.TotalExecutions)
}

func (e *Engine) recordNode(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.NodeExecutionCounts[nodeID]++
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
