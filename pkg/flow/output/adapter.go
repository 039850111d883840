package output

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-companion-be/pkg/flow"
	"ai-companion-be/pkg/llm"
)

// DefaultChunkSize is how many runes each streamed chunk carries.
const DefaultChunkSize = 50

const fallbackContent = "抱歉，我暂时无法生成回复。"

// Stats aggregates generation outcomes.
type Stats struct {
	TotalResponses        int            `json:"total_responses"`
	SuccessfulResponses   int            `json:"successful_responses"`
	FailedResponses       int            `json:"failed_responses"`
	AverageGenerationTime float64        `json:"average_generation_time"`
	TypeDistribution      map[string]int `json:"response_type_distribution"`
}

// Adapter renders a decision into response content. Generate always returns
// a usable AIResponse; LLM failures resolve to a templated fallback.
type Adapter struct {
	provider  llm.LLMProvider
	logger    *log.Logger
	chunkSize int
	now       func() time.Time

	mu    sync.Mutex
	stats Stats
}

func NewAdapter(provider llm.LLMProvider, logger *log.Logger) *Adapter {
	return &Adapter{
		provider:  provider,
		logger:    logger,
		chunkSize: DefaultChunkSize,
		now:       time.Now,
		stats:     Stats{TypeDistribution: map[string]int{}},
	}
}

// WithChunkSize overrides the streaming chunk size.
func (a *Adapter) WithChunkSize(size int) *Adapter {
	if size > 0 {
		a.chunkSize = size
	}
	return a
}

// WithClock injects a deterministic clock for tests.
func (a *Adapter) WithClock(now func() time.Time) *Adapter {
	a.now = now
	return a
}

// Generate resolves the strategy for a decision and produces the response
// content. It never returns an error: template substitution is tried first
// when the strategy names a template, then the LLM, then the fallback text.
func (a *Adapter) Generate(ctx context.Context, decision flow.FlowDecision, state *flow.ConversationState, input flow.UserInput) flow.AIResponse {
	started := a.now()
	strategy := ResolveStrategy(decision, state)

	content, generated := a.generateContent(ctx, decision, state, input, strategy)
	content = applyCharacterStyle(content, state)
	if content == "" {
		content = fallbackContent
		generated = false
	}

	elapsed := a.now().Sub(started).Seconds()
	a.record(strategy.ResponseType, elapsed, generated)

	messageID := input.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	return flow.AIResponse{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		MessageID:      messageID,
		Content:        content,
		MessageType:    strategy.ResponseType,
		IsStreaming:    strategy.Streaming,
		Metadata: map[string]interface{}{
			"generation_time":  elapsed,
			"response_style":   strategy.Style,
			"decision_type":    decision.DecisionType,
			"confidence_score": decision.Confidence,
			"max_tokens":       strategy.MaxTokens,
		},
		Timestamp: a.now(),
	}
}

// Chunks splits content into fixed-size, order-preserving pieces for
// progressive delivery. Splitting happens on rune boundaries, so joining the
// chunks reproduces the content byte for byte.
func (a *Adapter) Chunks(content string) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(runes)+a.chunkSize-1)/a.chunkSize)
	for i := 0; i < len(runes); i += a.chunkSize {
		end := i + a.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// GetStats returns a copy of the aggregated counters.
func (a *Adapter) GetStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.stats
	out.TypeDistribution = make(map[string]int, len(a.stats.TypeDistribution))
	for k, v := range a.stats.TypeDistribution {
		out.TypeDistribution[k] = v
	}
	return out
}

func (a *Adapter) generateContent(ctx context.Context, decision flow.FlowDecision, state *flow.ConversationState, input flow.UserInput, strategy Strategy) (string, bool) {
	if strategy.UseTemplate && strategy.TemplateKey != "" {
		if rendered := RenderTemplate(strategy.TemplateKey, decision, state); rendered != "" {
			return rendered, true
		}
	}

	prompt := buildPrompt(decision, state, input)
	response, err := a.provider.Generate(ctx, prompt,
		llm.WithMaxTokens(strategy.MaxTokens),
		llm.WithTemperature(strategy.Temperature),
	)
	if err != nil {
		if a.logger != nil {
			a.logger.Printf("llm generation failed for user %d: %v", input.UserID, err)
		}
		return fallbackContent, false
	}
	if response == "" {
		return fallbackContent, false
	}
	return response, true
}

func buildPrompt(decision flow.FlowDecision, state *flow.ConversationState, input flow.UserInput) string {
	identity := state.RoleCognition.CharacterIdentity
	if identity == "" {
		identity = "AI助手"
	}
	personality := strings.Join(state.RoleCognition.PersonalityTraits, "、")
	if personality == "" {
		personality = "友好、乐于助人"
	}
	style := state.ExpressionRules.SpeakingStyle
	if style == "" {
		style = "自然"
	}

	parts := []string{
		fmt.Sprintf("你是%s，一个%s的AI伙伴。", identity, personality),
		fmt.Sprintf("你的说话风格是：%s。", style),
		fmt.Sprintf("当前对话阶段：%s。", state.InteractionDynamics.ConversationPhase),
		fmt.Sprintf("用户参与度：%.1f。", state.InteractionDynamics.UserEngagementLevel),
		"",
		fmt.Sprintf("用户说：%s", input.Content),
		"",
		"请根据你的角色设定和当前情况，给出合适的回复。",
	}

	switch decision.DecisionType {
	case flow.DecisionEmotionalSupport:
		parts = append(parts, "请以同理心和关怀的语气回复。")
	case flow.DecisionCreativeResponse:
		parts = append(parts, "请发挥创意，给出有趣的内容。")
	case flow.DecisionAskClarification:
		parts = append(parts, "请礼貌地询问更多细节。")
	}

	return strings.Join(parts, "\n")
}

// applyCharacterStyle adjusts fillers and punctuation for the character's
// formality and humor settings without changing the semantic content.
func applyCharacterStyle(content string, state *flow.ConversationState) string {
	if content == "" {
		return content
	}

	switch state.ExpressionRules.FormalityLevel {
	case "formal":
		content = strings.ReplaceAll(content, "哈哈", "")
		content = strings.ReplaceAll(content, "嗯嗯", "是的")
	case "casual":
		if !strings.ContainsAny(content, "哦嗯呢") && strings.HasSuffix(content, "。") {
			content = strings.TrimSuffix(content, "。") + "呢。"
		}
	}

	if state.ExpressionRules.HumorPreference == "low" {
		content = strings.ReplaceAll(content, "哈哈", "")
	}

	return content
}

func (a *Adapter) record(responseType string, elapsed float64, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalResponses++
	if success {
		a.stats.SuccessfulResponses++
	} else {
		a.stats.FailedResponses++
	}
	total := a.stats.AverageGenerationTime * float64(a.stats.TotalResponses-1)
	a.stats.AverageGenerationTime = (total + elapsed) / float64(a.stats.TotalResponses)
	a.stats.TypeDistribution[responseType]++
}
