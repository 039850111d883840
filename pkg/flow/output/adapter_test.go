package output

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-companion-be/pkg/flow"
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

func testState() *flow.ConversationState {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	return flow.DefaultState(key, "char-1", nil, now)
}

func TestGenerateFallsBackWhenProviderFails(t *testing.T) {
	a := NewAdapter(&stubProvider{err: errors.New("connection refused")}, nil)

	decision := flow.FlowDecision{
		DecisionType: flow.DecisionProvideInformation,
		Action:       flow.ActionGenerateText,
		Confidence:   0.7,
	}
	st := testState()
	st.InteractionDynamics.ConversationPhase = "main"

	got := a.Generate(context.Background(), decision, st, flow.UserInput{
		UserID:  1,
		Content: "介绍一下上海",
	})

	if got.Content == "" {
		t.Fatal("fallback content must not be empty")
	}
	if got.MessageID == "" {
		t.Error("a message id is always assigned")
	}

	stats := a.GetStats()
	if stats.FailedResponses != 1 {
		t.Errorf("FailedResponses = %d, want 1", stats.FailedResponses)
	}
}

func TestGenerateGreetingUsesCharacterNickname(t *testing.T) {
	// Provider errors to prove the content came from the template path.
	a := NewAdapter(&stubProvider{err: errors.New("unreachable")}, nil)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	key := flow.StateKey{UserID: 1, ConversationID: "c1"}
	st := flow.DefaultState(key, "char-1", &flow.CharacterProfile{
		CharacterID: "char-1",
		Nickname:    "小雪",
		Personality: "温柔，体贴",
	}, now)

	decision := flow.FlowDecision{
		DecisionType: flow.DecisionRespondImmediately,
		Action:       flow.ActionGenerateText,
		Confidence:   0.9,
	}

	got := a.Generate(context.Background(), decision, st, flow.UserInput{UserID: 1, Content: "你好"})

	if !strings.Contains(got.Content, "小雪") {
		t.Errorf("greeting %q does not mention the character nickname", got.Content)
	}
}

func TestGenerateStreamingMetadata(t *testing.T) {
	a := NewAdapter(&stubProvider{response: "从前有一座山。"}, nil)

	st := testState()
	st.InteractionDynamics.UserEngagementLevel = 0.9
	st.InteractionDynamics.ConversationPhase = "main"

	decision := flow.FlowDecision{
		DecisionType: flow.DecisionCreativeResponse,
		Action:       flow.ActionGenerateStreaming,
		Confidence:   0.8,
	}

	got := a.Generate(context.Background(), decision, st, flow.UserInput{UserID: 1, Content: "讲个故事"})

	if !got.IsStreaming {
		t.Error("creative response must stream")
	}
	if got.MessageType != "streaming" {
		t.Errorf("MessageType = %q, want streaming", got.MessageType)
	}
	if tokens, _ := got.Metadata["max_tokens"].(int); tokens != 1000 {
		t.Errorf("max_tokens = %v, want 1000 (800 scaled by engagement, capped)", got.Metadata["max_tokens"])
	}
}

func TestChunksRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		chunkSize int
	}{
		{"ascii", "hello world, this is a long response body", 7},
		{"chinese", "从前有一座山，山里有一座庙，庙里有一个老和尚在讲故事。", 5},
		{"mixed", "AI伙伴说：hello！我们continue聊天吧。", 3},
		{"single chunk", "短", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(&stubProvider{}, nil).WithChunkSize(tt.chunkSize)
			chunks := a.Chunks(tt.content)

			if got := strings.Join(chunks, ""); got != tt.content {
				t.Errorf("joined chunks = %q, want %q byte for byte", got, tt.content)
			}
			for i, c := range chunks[:len(chunks)-1] {
				if n := len([]rune(c)); n != tt.chunkSize {
					t.Errorf("chunk %d has %d runes, want %d", i, n, tt.chunkSize)
				}
			}
		})
	}
}

func TestChunksEmptyContent(t *testing.T) {
	a := NewAdapter(&stubProvider{}, nil)
	if chunks := a.Chunks(""); chunks != nil {
		t.Errorf("Chunks(\"\") = %v, want nil", chunks)
	}
}

func TestApplyCharacterStyle(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		formality string
		humor     string
		want      string
	}{
		{"formal strips laughter", "哈哈，好的。", "formal", "moderate", "，好的。"},
		{"formal upgrades filler", "嗯嗯，明白了。", "formal", "moderate", "是的，明白了。"},
		{"casual softens ending", "明天见。", "casual", "moderate", "明天见呢。"},
		{"low humor strips laughter", "这很有趣哈哈。", "", "low", "这很有趣。"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testState()
			st.ExpressionRules.FormalityLevel = tt.formality
			st.ExpressionRules.HumorPreference = tt.humor

			if got := applyCharacterStyle(tt.content, st); got != tt.want {
				t.Errorf("applyCharacterStyle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
