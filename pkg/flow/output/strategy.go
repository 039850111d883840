package output

import (
	"ai-companion-be/pkg/flow"
)

// Strategy is the resolved generation plan for one decision. It is computed
// before any LLM call and fully determines tokens, temperature and delivery.
type Strategy struct {
	ResponseType string
	Style        string
	Streaming    bool
	MaxTokens    int
	Temperature  float64
	UseTemplate  bool
	TemplateKey  string
}

// Response styles.
const (
	StyleDirect     = "direct"
	StyleEmpathetic = "empathetic"
	StyleCreative   = "creative"
	StyleFormal     = "formal"
	StyleCasual     = "casual"
)

const (
	maxTokensCeiling = 1000
	maxTokensFloor   = 100
)

// ResolveStrategy maps a decision type to its base generation plan, then
// perturbs it by the character's expression rules and the user's engagement
// level. High engagement scales max_tokens up to the ceiling, low engagement
// scales it down to the floor.
func ResolveStrategy(decision flow.FlowDecision, state *flow.ConversationState) Strategy {
	s := Strategy{
		ResponseType: "text",
		Style:        StyleDirect,
		Streaming:    false,
		MaxTokens:    500,
		Temperature:  0.7,
	}

	switch decision.DecisionType {
	case flow.DecisionRespondImmediately:
		s.MaxTokens = 300
		s.Temperature = 0.7
		if state.InteractionDynamics.ConversationPhase == "greeting" {
			s.UseTemplate = true
			s.TemplateKey = TemplateGreeting
		}
	case flow.DecisionAskClarification:
		s.Style = StyleFormal
		s.MaxTokens = 200
		s.Temperature = 0.5
		s.UseTemplate = true
		s.TemplateKey = TemplateClarification
	case flow.DecisionEmotionalSupport:
		s.Style = StyleEmpathetic
		s.MaxTokens = 400
		s.Temperature = 0.8
		s.UseTemplate = true
		s.TemplateKey = TemplateEmotionalSupport
	case flow.DecisionCreativeResponse:
		s.ResponseType = "streaming"
		s.Style = StyleCreative
		s.Streaming = true
		s.MaxTokens = 800
		s.Temperature = 0.9
		s.UseTemplate = true
		s.TemplateKey = TemplateCreativeRequest
	case flow.DecisionProvideInformation:
		s.ResponseType = "structured"
		s.Style = StyleFormal
		s.MaxTokens = 600
		s.Temperature = 0.6
	}

	switch state.ExpressionRules.SpeakingStyle {
	case "formal":
		s.Style = StyleFormal
		if s.Temperature > 0.6 {
			s.Temperature = 0.6
		}
	case "casual":
		s.Style = StyleCasual
		if s.Temperature < 0.8 {
			s.Temperature = 0.8
		}
	}

	engagement := state.InteractionDynamics.UserEngagementLevel
	if engagement > 0.8 {
		scaled := int(float64(s.MaxTokens) * 1.5)
		if scaled > maxTokensCeiling {
			scaled = maxTokensCeiling
		}
		s.MaxTokens = scaled
	} else if engagement < 0.3 {
		scaled := int(float64(s.MaxTokens) * 0.7)
		if scaled < maxTokensFloor {
			scaled = maxTokensFloor
		}
		s.MaxTokens = scaled
	}

	return s
}
