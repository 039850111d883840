package graph

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/decision"
	"ai-companion-be/pkg/flow/output"
	"ai-companion-be/pkg/flow/parser"
	"ai-companion-be/pkg/flow/state"
)

// Graph names.
const (
	ChatFlow          = "chat_flow"
	ClarificationFlow = "clarification_flow"
	CreativeFlow      = "creative_flow"
	ErrorRecoveryFlow = "error_recovery_flow"
)

const qualityThreshold = 0.6

// Components are the pipeline primitives the graphs execute over. They are
// the same instances the direct pipeline uses.
type Components struct {
	Parser  *parser.Parser
	States  *state.Store
	Decider *decision.Engine
	Output  *output.Adapter
}

// Orchestrator is the graph execution mode: the same parse, state, decide
// and generate primitives walked as an auditable node graph with per-node
// retries and a dedicated error-recovery path.
type Orchestrator struct {
	engine *Engine
	comp   Components
}

func NewOrchestrator(comp Components, logger *log.Logger) *Orchestrator {
	o := &Orchestrator{comp: comp}
	o.engine = NewEngine(logger,
		o.chatFlow(),
		o.clarificationFlow(),
		o.creativeFlow(),
		o.errorRecoveryFlow(),
	)
	return o
}

// Engine exposes the underlying walker for stats and tuning.
func (o *Orchestrator) Engine() *Engine { return o.engine }

// Run executes the chat flow for one input. A failed walk is routed
// through the error-recovery graph, so Run always yields a response.
func (o *Orchestrator) Run(ctx context.Context, input flow.UserInput) flow.AIResponse {
	return o.run(ctx, ChatFlow, input)
}

// RunFlow executes a named graph, falling back to recovery like Run.
func (o *Orchestrator) RunFlow(ctx context.Context, name string, input flow.UserInput) flow.AIResponse {
	return o.run(ctx, name, input)
}

func (o *Orchestrator) run(ctx context.Context, name string, input flow.UserInput) flow.AIResponse {
	c := &Carrier{Input: input}
	if err := o.engine.Execute(ctx, name, c); err != nil {
		if rerr := o.engine.Execute(ctx, ErrorRecoveryFlow, c); rerr != nil || c.Response == nil {
			return errorResponse(input)
		}
	}
	if c.Response == nil {
		return errorResponse(input)
	}
	return *c.Response
}

func (o *Orchestrator) chatFlow() *Graph {
	return &Graph{
		Name:  ChatFlow,
		Start: NodeInputProcessing,
		Nodes: map[string]*Node{
			NodeInputProcessing:    {ID: NodeInputProcessing, Handler: o.handleInputProcessing},
			NodeIntentAnalysis:     {ID: NodeIntentAnalysis, Handler: o.handleIntentAnalysis},
			NodeContextRetrieval:   {ID: NodeContextRetrieval, Handler: o.handleContextRetrieval},
			NodeResponseGeneration: {ID: NodeResponseGeneration, Handler: o.handleResponseGeneration},
			NodeQualityCheck:       {ID: NodeQualityCheck, Handler: o.handleQualityCheck},
			NodeOutputFormatting:   {ID: NodeOutputFormatting, Handler: o.handleOutputFormatting},
			NodeErrorHandling:      {ID: NodeErrorHandling, Handler: o.handleErrorHandling},
		},
		Edges: map[string]map[Outcome]string{
			NodeInputProcessing:    {OutcomeDefault: NodeIntentAnalysis, OutcomeError: NodeErrorHandling},
			NodeIntentAnalysis:     {OutcomeDefault: NodeContextRetrieval},
			NodeContextRetrieval:   {OutcomeDefault: NodeResponseGeneration},
			NodeResponseGeneration: {OutcomeDefault: NodeQualityCheck},
			NodeQualityCheck:       {OutcomeSuccess: NodeOutputFormatting, OutcomeError: NodeErrorHandling},
			NodeOutputFormatting:   {OutcomeDefault: NodeEnd},
			NodeErrorHandling:      {OutcomeDefault: NodeEnd},
		},
	}
}

func (o *Orchestrator) clarificationFlow() *Graph {
	return &Graph{
		Name:  ClarificationFlow,
		Start: NodeInputProcessing,
		Nodes: map[string]*Node{
			NodeInputProcessing:    {ID: NodeInputProcessing, Handler: o.handleInputProcessing},
			NodeResponseGeneration: {ID: NodeResponseGeneration, Handler: o.handleResponseGeneration},
			NodeErrorHandling:      {ID: NodeErrorHandling, Handler: o.handleErrorHandling},
		},
		Edges: map[string]map[Outcome]string{
			NodeInputProcessing:    {OutcomeDefault: NodeResponseGeneration, OutcomeError: NodeErrorHandling},
			NodeResponseGeneration: {OutcomeDefault: NodeEnd},
			NodeErrorHandling:      {OutcomeDefault: NodeEnd},
		},
	}
}

func (o *Orchestrator) creativeFlow() *Graph {
	return &Graph{
		Name:  CreativeFlow,
		Start: NodeInputProcessing,
		Nodes: map[string]*Node{
			NodeInputProcessing:    {ID: NodeInputProcessing, Handler: o.handleInputProcessing},
			NodeResponseGeneration: {ID: NodeResponseGeneration, Handler: o.handleResponseGeneration},
			NodeErrorHandling:      {ID: NodeErrorHandling, Handler: o.handleErrorHandling},
		},
		Edges: map[string]map[Outcome]string{
			NodeInputProcessing:    {OutcomeDefault: NodeResponseGeneration, OutcomeError: NodeErrorHandling},
			NodeResponseGeneration: {OutcomeDefault: NodeEnd},
			NodeErrorHandling:      {OutcomeDefault: NodeEnd},
		},
	}
}

func (o *Orchestrator) errorRecoveryFlow() *Graph {
	return &Graph{
		Name:  ErrorRecoveryFlow,
		Start: NodeErrorHandling,
		Nodes: map[string]*Node{
			NodeErrorHandling: {ID: NodeErrorHandling, Handler: o.handleErrorHandling},
		},
		Edges: map[string]map[Outcome]string{
			NodeErrorHandling: {OutcomeDefault: NodeEnd},
		},
	}
}

// --- node handlers ---

// handleInputProcessing validates the inbound message. A validation miss is
// an error outcome, not a handler error, so it routes without retrying.
func (o *Orchestrator) handleInputProcessing(_ context.Context, c *Carrier) (Outcome, error) {
	if strings.TrimSpace(c.Input.Content) == "" {
		c.Err = errors.New("empty user input")
		return OutcomeError, nil
	}
	return OutcomeDefault, nil
}

func (o *Orchestrator) handleIntentAnalysis(_ context.Context, c *Carrier) (Outcome, error) {
	parsed := o.comp.Parser.Parse(c.Input.Content)
	c.Parsed = &parsed
	return OutcomeDefault, nil
}

func (o *Orchestrator) handleContextRetrieval(ctx context.Context, c *Carrier) (Outcome, error) {
	key := flow.StateKey{UserID: c.Input.UserID, ConversationID: c.Input.ConversationID}
	prev := o.comp.States.Get(ctx, key, c.Input.AICharacterID)
	if c.Parsed == nil {
		parsed := o.comp.Parser.Parse(c.Input.Content)
		c.Parsed = &parsed
	}
	c.State = o.comp.States.Update(prev, *c.Parsed)
	return OutcomeDefault, nil
}

func (o *Orchestrator) handleResponseGeneration(ctx context.Context, c *Carrier) (Outcome, error) {
	// The short flows skip the analysis nodes; fill the gaps here.
	if c.Parsed == nil {
		parsed := o.comp.Parser.Parse(c.Input.Content)
		c.Parsed = &parsed
	}
	if c.State == nil {
		key := flow.StateKey{UserID: c.Input.UserID, ConversationID: c.Input.ConversationID}
		prev := o.comp.States.Get(ctx, key, c.Input.AICharacterID)
		c.State = o.comp.States.Update(prev, *c.Parsed)
	}

	d := o.comp.Decider.Decide(c.State, *c.Parsed)
	c.Decision = &d
	state.ApplyChanges(c.State, d.StateChanges)

	resp := o.comp.Output.Generate(ctx, d, c.State, c.Input)
	c.Response = &resp
	return OutcomeDefault, nil
}

// handleQualityCheck gates forward progress: a response scoring below the
// threshold routes to error handling instead of formatting.
func (o *Orchestrator) handleQualityCheck(_ context.Context, c *Carrier) (Outcome, error) {
	content := ""
	if c.Response != nil {
		content = c.Response.Content
	}

	score := 0.5
	if len([]rune(content)) > 10 {
		score += 0.2
	}
	if !strings.Contains(content, "错误") && !strings.Contains(strings.ToLower(content), "error") {
		score += 0.2
	}
	c.QualityScore = score

	if score < qualityThreshold {
		c.Err = errors.New("response below quality threshold")
		return OutcomeError, nil
	}
	return OutcomeSuccess, nil
}

func (o *Orchestrator) handleOutputFormatting(ctx context.Context, c *Carrier) (Outcome, error) {
	if c.State != nil {
		o.comp.States.Commit(ctx, c.State)
	}
	if c.Response != nil {
		if c.Response.Metadata == nil {
			c.Response.Metadata = map[string]interface{}{}
		}
		c.Response.Metadata["quality_score"] = c.QualityScore
	}
	return OutcomeDefault, nil
}

func (o *Orchestrator) handleErrorHandling(_ context.Context, c *Carrier) (Outcome, error) {
	resp := errorResponse(c.Input)
	c.Response = &resp
	return OutcomeDefault, nil
}

func errorResponse(input flow.UserInput) flow.AIResponse {
	return flow.AIResponse{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		MessageID:      input.MessageID,
		Content:        "抱歉，处理您的请求时遇到了问题。请稍后再试。",
		MessageType:    "error",
		IsStreaming:    false,
		Timestamp:      time.Now(),
	}
}
