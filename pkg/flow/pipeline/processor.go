// Package pipeline wires the flow primitives into the end-to-end
// parse, update, decide, generate run for one inbound message.
package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"ai-companion-be/pkg/cache"
	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/decision"
	"ai-companion-be/pkg/flow/graph"
	"ai-companion-be/pkg/flow/output"
	"ai-companion-be/pkg/flow/parser"
	"ai-companion-be/pkg/flow/state"
)

// Stats aggregates processor runs.
type Stats struct {
	TotalProcessed        int     `json:"total_processed"`
	AverageProcessingTime float64 `json:"average_processing_time"`
}

// Processor executes the flow for one message. Process never fails: every
// stage degrades per its own contract, so the caller always gets a
// deliverable response.
type Processor struct {
	parser  *parser.Parser
	states  *state.Store
	decider *decision.Engine
	output  *output.Adapter
	graphs  *graph.Orchestrator
	logger  *log.Logger
	now     func() time.Time

	// graphMode walks the node graph instead of the direct pipeline.
	graphMode bool

	statsCache cache.Store
	statsTTL   time.Duration

	mu    sync.Mutex
	stats Stats
}

const statsCacheKey = "flow:processor:stats"

func NewProcessor(p *parser.Parser, s *state.Store, d *decision.Engine, o *output.Adapter, logger *log.Logger) *Processor {
	proc := &Processor{
		parser:  p,
		states:  s,
		decider: d,
		output:  o,
		logger:  logger,
		now:     time.Now,
	}
	proc.graphs = graph.NewOrchestrator(graph.Components{
		Parser:  p,
		States:  s,
		Decider: d,
		Output:  o,
	}, logger)
	return proc
}

// WithStatsCache publishes a stats snapshot after every run so other
// instances can read it without holding a processor reference.
func (p *Processor) WithStatsCache(store cache.Store, ttl time.Duration) *Processor {
	p.statsCache = store
	p.statsTTL = ttl
	return p
}

// WithGraphMode selects the node-graph execution strategy.
func (p *Processor) WithGraphMode(enabled bool) *Processor {
	p.graphMode = enabled
	return p
}

// Orchestrator exposes the graph engine for stats and direct flow runs.
func (p *Processor) Orchestrator() *graph.Orchestrator { return p.graphs }

// Process runs the full flow for one message and returns the response to
// deliver. The state snapshot is committed before generation starts so a
// cancelled generation still leaves the folded-in user turn behind.
func (p *Processor) Process(ctx context.Context, input flow.UserInput) flow.AIResponse {
	started := p.now()
	defer func() { p.record(p.now().Sub(started).Seconds()) }()

	if p.graphMode {
		return p.graphs.Run(ctx, input)
	}

	parsed := p.parser.Parse(input.Content)

	key := flow.StateKey{UserID: input.UserID, ConversationID: input.ConversationID}
	prev := p.states.Get(ctx, key, input.AICharacterID)
	st := p.states.Update(prev, parsed)

	d := p.decider.Decide(st, parsed)
	state.ApplyChanges(st, d.StateChanges)
	p.states.Commit(ctx, st)

	return p.output.Generate(ctx, d, st, input)
}

// Chunks exposes the adapter's streaming split for the delivery layer.
func (p *Processor) Chunks(content string) []string {
	return p.output.Chunks(content)
}

// GetStats returns a copy of the processor counters.
func (p *Processor) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Processor) record(elapsed float64) {
	p.mu.Lock()
	p.stats.TotalProcessed++
	total := p.stats.AverageProcessingTime * float64(p.stats.TotalProcessed-1)
	p.stats.AverageProcessingTime = (total + elapsed) / float64(p.stats.TotalProcessed)
	snapshot := p.stats
	p.mu.Unlock()

	if p.statsCache != nil {
		if payload, err := json.Marshal(snapshot); err == nil {
			p.statsCache.Set(context.Background(), statsCacheKey, payload, p.statsTTL)
		}
	}
}
