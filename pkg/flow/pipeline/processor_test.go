package pipeline

import (
	"context"
	"encoding/json"
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

func newTestProcessor(provider llm.LLMProvider) (*Processor, *state.Store) {
	logger := log.New(io.Discard, "", 0)
	states := state.NewStore(cache.NewMemory(time.Minute, time.Minute), nil, state.DefaultTTLConfig(), logger)
	p := NewProcessor(
		parser.New(),
		states,
		decision.NewEngine(nil, logger),
		output.NewAdapter(provider, logger),
		logger,
	)
	return p, states
}

func TestProcessProducesResponse(t *testing.T) {
	p, _ := newTestProcessor(&stubProvider{response: "很高兴认识你，我们聊聊吧。"})

	got := p.Process(context.Background(), flow.UserInput{
		UserID:         1,
		Content:        "你好",
		ConversationID: "c1",
		MessageID:      "m1",
	})

	if got.Content == "" {
		t.Fatal("Process must always yield content")
	}
	if got.MessageID != "m1" {
		t.Errorf("MessageID = %q, want m1", got.MessageID)
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
}

func TestProcessFoldsInputIntoState(t *testing.T) {
	p, states := newTestProcessor(&stubProvider{response: "好的，我明白了你的意思。"})
	ctx := context.Background()

	p.Process(ctx, flow.UserInput{UserID: 1, Content: "你好", ConversationID: "c1"})
	p.Process(ctx, flow.UserInput{UserID: 1, Content: "讲个故事", ConversationID: "c1"})

	st := states.Get(ctx, flow.StateKey{UserID: 1, ConversationID: "c1"}, "")
	if st.DynamicAdjustment.InteractionCount < 2 {
		t.Errorf("InteractionCount = %d, want >= 2", st.DynamicAdjustment.InteractionCount)
	}
	if len(st.InteractionHistory) == 0 {
		t.Error("interaction history must record processed inputs")
	}
}

func TestProcessSurvivesProviderOutage(t *testing.T) {
	p, _ := newTestProcessor(&stubProvider{err: errors.New("dial tcp: connection refused")})

	got := p.Process(context.Background(), flow.UserInput{
		UserID:  1,
		Content: "介绍一下这个信息",
	})

	if got.Content == "" {
		t.Fatal("an unreachable model still yields user-facing content")
	}
}

func TestProcessorChunks(t *testing.T) {
	p, _ := newTestProcessor(&stubProvider{})

	content := "从前有一座山，山里有一座庙。"
	if got := strings.Join(p.Chunks(content), ""); got != content {
		t.Errorf("joined chunks = %q, want %q", got, content)
	}
}

func TestProcessGraphModeProducesResponse(t *testing.T) {
	p, _ := newTestProcessor(&stubProvider{response: "这是一个足够长的正常回复内容。"})
	p.WithGraphMode(true)
	p.Orchestrator().Engine().WithBackoff(0)

	got := p.Process(context.Background(), flow.UserInput{
		UserID:         1,
		Content:        "你好",
		ConversationID: "c1",
		MessageID:      "m9",
	})

	if got.Content == "" {
		t.Fatal("graph mode must always yield content")
	}
	if got.MessageType == "error" {
		t.Errorf("unexpected error response: %q", got.Content)
	}
}

func TestProcessorStats(t *testing.T) {
	p, _ := newTestProcessor(&stubProvider{response: "好的。"})
	p.Process(context.Background(), flow.UserInput{UserID: 1, Content: "你好", ConversationID: "c1"})

	stats := p.GetStats()
	if stats.TotalProcessed != 1 {
		t.Errorf("TotalProcessed = %d, want 1", stats.TotalProcessed)
	}
}

// countingProfileSource records which profile lookups the pipeline performs.
type countingProfileSource struct {
	user     *flow.UserProfile
	userHits int
}

func (s *countingProfileSource) CharacterProfile(ctx context.Context, characterID string) (*flow.CharacterProfile, error) {
	return nil, nil
}

func (s *countingProfileSource) UserProfile(ctx context.Context, userID int64) (*flow.UserProfile, error) {
	s.userHits++
	return s.user, nil
}

func (s *countingProfileSource) ConversationCharacter(ctx context.Context, conversationID string, userID int64) (string, error) {
	return "", nil
}

func TestProcessConsultsUserProfile(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	source := &countingProfileSource{
		user: &flow.UserProfile{
			UserID:      1,
			Preferences: map[string]string{"formality_level": "formal"},
		},
	}
	states := state.NewStore(cache.NewMemory(time.Minute, time.Minute), source, state.DefaultTTLConfig(), logger)
	p := NewProcessor(
		parser.New(),
		states,
		decision.NewEngine(nil, logger),
		output.NewAdapter(&stubProvider{response: "好的，很高兴认识你。"}, logger),
		logger,
	)

	p.Process(context.Background(), flow.UserInput{
		UserID:         1,
		Content:        "你好",
		ConversationID: "c1",
		MessageID:      "m1",
	})

	if source.userHits == 0 {
		t.Fatal("Process never consulted the user profile")
	}
	st := states.Get(context.Background(), flow.StateKey{UserID: 1, ConversationID: "c1"}, "")
	if got := st.ExpressionRules.FormalityLevel; got != "formal" {
		t.Errorf("FormalityLevel = %q, want formal", got)
	}
}

func TestProcessorPublishesStatsSnapshot(t *testing.T) {
	store := cache.NewMemory(time.Minute, time.Minute)
	p, _ := newTestProcessor(&stubProvider{response: "好的。"})
	p.WithStatsCache(store, time.Minute)

	p.Process(context.Background(), flow.UserInput{UserID: 1, Content: "你好", ConversationID: "c1"})
	p.Process(context.Background(), flow.UserInput{UserID: 1, Content: "再见", ConversationID: "c1"})

	payload, ok := store.Get(context.Background(), "flow:processor:stats")
	if !ok {
		t.Fatal("expected a stats snapshot in the cache")
	}
	var snapshot Stats
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snapshot.TotalProcessed != 2 {
		t.Errorf("TotalProcessed = %d, want 2", snapshot.TotalProcessed)
	}
}
