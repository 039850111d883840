package decision

import (
	"ai-companion-be/pkg/flow"
)

// Condition is a typed rule predicate. Zero-value fields are wildcards.
type Condition struct {
	Intents           []string // any-of match on the parsed intent
	ConversationPhase string
	MinEngagement     *float64
	Sentiments        []string // any-of match on the parsed sentiment
	RequiredFunctions []string // all must be granted capabilities
	MinConsistency    *float64
}

// Rule is one row of the prioritized decision table.
type Rule struct {
	ID                  string
	Condition           Condition
	DecisionType        string
	Action              string
	Parameters          map[string]interface{}
	Priority            int
	ConfidenceThreshold float64
}

func floatPtr(v float64) *float64 { return &v }

// DefaultRules is the built-in rule table, highest priority first is not
// required since the engine sorts matches itself.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID: "immediate_response",
			Condition: Condition{
				Intents:       []string{flow.IntentGreeting, flow.IntentQuestion, flow.IntentRequest},
				MinEngagement: floatPtr(0.3),
			},
			DecisionType:        flow.DecisionRespondImmediately,
			Action:              flow.ActionGenerateText,
			Parameters:          map[string]interface{}{"response_style": "direct", "max_tokens": 500},
			Priority:            10,
			ConfidenceThreshold: 0.6,
		},
		{
			ID: "emotional_support",
			Condition: Condition{
				Sentiments:    []string{flow.SentimentNegative, flow.SentimentSad, flow.SentimentFrustrated},
				MinEngagement: floatPtr(0.4),
			},
			DecisionType:        flow.DecisionEmotionalSupport,
			Action:              flow.ActionGenerateText,
			Parameters:          map[string]interface{}{"response_style": "empathetic", "tone": "supportive"},
			Priority:            9,
			ConfidenceThreshold: 0.7,
		},
		{
			ID: "clarification_needed",
			Condition: Condition{
				Intents:        []string{flow.IntentUnknown},
				MinEngagement:  floatPtr(0.2),
				MinConsistency: floatPtr(0.3),
			},
			DecisionType:        flow.DecisionAskClarification,
			Action:              flow.ActionRequestMoreInfo,
			Parameters:          map[string]interface{}{"question_type": "clarification"},
			Priority:            8,
			ConfidenceThreshold: 0.5,
		},
		{
			ID: "creative_response",
			Condition: Condition{
				Intents:           []string{flow.IntentCreativeRequest, flow.IntentStoryRequest},
				RequiredFunctions: []string{"creative_writing"},
			},
			DecisionType:        flow.DecisionCreativeResponse,
			Action:              flow.ActionGenerateStreaming,
			Parameters:          map[string]interface{}{"response_style": "creative", "streaming": true},
			Priority:            7,
			ConfidenceThreshold: 0.6,
		},
		{
			ID: "information_request",
			Condition: Condition{
				Intents: []string{flow.IntentInformationRequest},
			},
			DecisionType:        flow.DecisionProvideInformation,
			Action:              flow.ActionGenerateText,
			Parameters:          map[string]interface{}{"response_style": "formal"},
			Priority:            7,
			ConfidenceThreshold: 0.5,
		},
		{
			ID: "topic_switch",
			Condition: Condition{
				Intents:       []string{flow.IntentTopicChange},
				MinEngagement: floatPtr(0.5),
			},
			DecisionType:        flow.DecisionTopicSwitch,
			Action:              flow.ActionGenerateText,
			Parameters:          map[string]interface{}{"response_style": "transitional"},
			Priority:            6,
			ConfidenceThreshold: 0.6,
		},
		{
			ID:                  "default_response",
			Condition:           Condition{},
			DecisionType:        flow.DecisionRespondImmediately,
			Action:              flow.ActionGenerateText,
			Parameters:          map[string]interface{}{"response_style": "general", "fallback": true},
			Priority:            1,
			ConfidenceThreshold: 0,
		},
	}
}
