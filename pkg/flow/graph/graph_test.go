package graph

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"ai-companion-be/pkg/cache"
	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/flow/decision"
	"ai-companion-be/pkg/flow/output"
	"ai-companion-be/pkg/flow/parser"
	"ai-companion-be/pkg/flow/state"
	"ai-companion-be/pkg/llm"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestEngineRetriesUntilExhausted(t *testing.T) {
	attempts := 0
	g := &Graph{
		Name:  "retry",
		Start: "flaky",
		Nodes: map[string]*Node{
			"flaky": {
				ID:         "flaky",
				MaxRetries: 2,
				Handler: func(_ context.Context, _ *Carrier) (Outcome, error) {
					attempts++
					return OutcomeError, errors.New("transient")
				},
			},
		},
		Edges: map[string]map[Outcome]string{
			"flaky": {OutcomeDefault: NodeEnd},
		},
	}

	e := NewEngine(discard(), g).WithBackoff(0)
	err := e.Execute(context.Background(), "retry", &Carrier{})

	if err == nil {
		t.Fatal("expected an error after retry exhaustion")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}

	stats := e.GetStats()
	if stats.FailedExecutions != 1 {
		t.Errorf("FailedExecutions = %d, want 1", stats.FailedExecutions)
	}
}

func TestEngineRecoversAfterTransientFailure(t *testing.T) {
	attempts := 0
	g := &Graph{
		Name:  "recover",
		Start: "flaky",
		Nodes: map[string]*Node{
			"flaky": {
				ID:         "flaky",
				MaxRetries: 3,
				Handler: func(_ context.Context, _ *Carrier) (Outcome, error) {
					attempts++
					if attempts < 3 {
						return OutcomeError, errors.New("transient")
					}
					return OutcomeDefault, nil
				},
			},
		},
		Edges: map[string]map[Outcome]string{
			"flaky": {OutcomeDefault: NodeEnd},
		},
	}

	e := NewEngine(discard(), g).WithBackoff(0)
	if err := e.Execute(context.Background(), "recover", &Carrier{}); err != nil {
		t.Fatalf("Execute() error = %v, want success on the third attempt", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestEngineRoutesErrorOutcomeToErrorHandling(t *testing.T) {
	var visited []string
	mark := func(id string, outcome Outcome) *Node {
		return &Node{ID: id, Handler: func(_ context.Context, _ *Carrier) (Outcome, error) {
			visited = append(visited, id)
			return outcome, nil
		}}
	}

	g := &Graph{
		Name:  "routing",
		Start: "check",
		Nodes: map[string]*Node{
			"check":           mark("check", OutcomeError),
			NodeErrorHandling: mark(NodeErrorHandling, OutcomeDefault),
		},
		Edges: map[string]map[Outcome]string{
			"check":           {OutcomeSuccess: NodeEnd},
			NodeErrorHandling: {OutcomeDefault: NodeEnd},
		},
	}

	e := NewEngine(discard(), g).WithBackoff(0)
	if err := e.Execute(context.Background(), "routing", &Carrier{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(visited) != 2 || visited[1] != NodeErrorHandling {
		t.Errorf("visited = %v, want the error outcome routed to %s", visited, NodeErrorHandling)
	}
}

func TestEngineUnknownGraph(t *testing.T) {
	e := NewEngine(discard())
	if err := e.Execute(context.Background(), "missing", &Carrier{}); err == nil {
		t.Error("expected an error for an unknown graph")
	}
}

type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func newTestOrchestrator(provider llm.LLMProvider) *Orchestrator {
	states := state.NewStore(cache.NewMemory(time.Minute, time.Minute), nil, state.DefaultTTLConfig(), discard())
	o := NewOrchestrator(Components{
		Parser:  parser.New(),
		States:  states,
		Decider: decision.NewEngine(nil, discard()),
		Output:  output.NewAdapter(provider, discard()),
	}, discard())
	o.Engine().WithBackoff(0)
	return o
}

func TestOrchestratorRunProducesResponse(t *testing.T) {
	o := newTestOrchestrator(&stubProvider{response: "这是一个足够长的正常回复内容。"})

	got := o.Run(context.Background(), flow.UserInput{
		UserID:         1,
		Content:        "你好",
		ConversationID: "c1",
		AICharacterID:  "char-1",
		MessageID:      "m1",
	})

	if got.Content == "" {
		t.Fatal("Run must always yield content")
	}
	if got.MessageType == "error" {
		t.Errorf("unexpected error response: %q", got.Content)
	}
	if _, ok := got.Metadata["quality_score"]; !ok {
		t.Error("formatted response carries a quality score")
	}
}

func TestOrchestratorEmptyInputYieldsErrorResponse(t *testing.T) {
	o := newTestOrchestrator(&stubProvider{response: "ok"})

	got := o.Run(context.Background(), flow.UserInput{UserID: 1, Content: "   ", MessageID: "m2"})

	if got.MessageType != "error" {
		t.Errorf("MessageType = %q, want error", got.MessageType)
	}
	if got.Content == "" {
		t.Error("error response must carry user-facing content")
	}
	if got.MessageID != "m2" {
		t.Errorf("MessageID = %q, want the inbound id preserved", got.MessageID)
	}
}

func TestOrchestratorQualityGate(t *testing.T) {
	// A terse reply mentioning an error scores 0.5, below the gate.
	o := newTestOrchestrator(&stubProvider{response: "错误"})

	got := o.Run(context.Background(), flow.UserInput{
		UserID:  1,
		Content: "介绍一下信息",
	})

	if got.MessageType != "error" {
		t.Errorf("MessageType = %q, want error after the quality gate rejects", got.MessageType)
	}
	if !strings.Contains(got.Content, "抱歉") {
		t.Errorf("error content %q should apologize", got.Content)
	}
}
