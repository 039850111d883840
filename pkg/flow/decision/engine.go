// Package decision evaluates the prioritized rule table against parsed
// input and conversation state. The engine is pure: it never mutates state
// and always returns a decision, degrading to a built-in default on any
// internal failure.
package decision

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"ai-companion-be/pkg/flow"
)

// Context is the slice of state the matcher looks at.
type Context struct {
	UserIntent         string
	UserSentiment      string
	ConversationPhase  string
	UserEngagement     float64
	TopicContinuity    float64
	ConsistencyScore   float64
	EmotionalState     string
	AvailableFunctions []string
}

// Engine holds the shared, read-only rule table. Safe for concurrent use.
type Engine struct {
	rules  []Rule
	logger *log.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats are rolling decision counters.
type Stats struct {
	TotalDecisions    int            `json:"total_decisions"`
	AverageConfidence float64        `json:"average_confidence"`
	TypeDistribution  map[string]int `json:"type_distribution"`
}

func NewEngine(rules []Rule, logger *log.Logger) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules, logger: logger}
}

type match struct {
	rule       Rule
	matchScore float64
	confidence float64
}

// Decide selects a response strategy. It never fails: a panic anywhere in
// rule evaluation resolves to the fixed fallback decision.
func (e *Engine) Decide(st *flow.ConversationState, parsed flow.ParsedInput) (decision flow.FlowDecision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[DECISION] recovered: %v", r)
			decision = fallbackDecision("engine error, using default", 0.5)
		}
		e.record(decision)
	}()

	dctx := buildContext(st, parsed)

	matches := make([]match, 0, len(e.rules))
	for _, rule := range e.rules {
		if !rule.Condition.matches(dctx) {
			continue
		}
		matches = append(matches, match{
			rule:       rule,
			matchScore: matchScore(rule.Condition, dctx),
			confidence: confidence(dctx),
		})
	}

	if len(matches) == 0 {
		return fallbackDecision("no rule matched, using default", 0.5)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rule.Priority != matches[j].rule.Priority {
			return matches[i].rule.Priority > matches[j].rule.Priority
		}
		return matches[i].matchScore > matches[j].matchScore
	})

	top := matches[0]
	if top.confidence < top.rule.ConfidenceThreshold {
		return fallbackDecision("top rule below confidence threshold", 0.3)
	}

	return flow.FlowDecision{
		DecisionType: top.rule.DecisionType,
		Action:       top.rule.Action,
		Parameters:   copyParams(top.rule.Parameters),
		Confidence:   top.confidence,
		Reasoning:    reasoning(top.rule, dctx, top.confidence),
		NextSteps:    nextSteps(top.rule.Action),
		StateChanges: stateChanges(top.rule.DecisionType, dctx, st),
	}
}

// Rules exposes the shared table for inspection.
func (e *Engine) Rules() []Rule { return e.rules }

// GetStats returns a copy of the rolling counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.TypeDistribution = make(map[string]int, len(e.stats.TypeDistribution))
	for k, v := range e.stats.TypeDistribution {
		s.TypeDistribution[k] = v
	}
	return s
}

func (e *Engine) record(d flow.FlowDecision) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stats.TypeDistribution == nil {
		e.stats.TypeDistribution = make(map[string]int)
	}
	total := float64(e.stats.TotalDecisions)
	e.stats.AverageConfidence = (e.stats.AverageConfidence*total + d.Confidence) / (total + 1)
	e.stats.TotalDecisions++
	e.stats.TypeDistribution[d.DecisionType]++
}

func buildContext(st *flow.ConversationState, parsed flow.ParsedInput) Context {
	emotional := parsed.Sentiment
	if n := len(st.EmotionChain); n > 0 {
		emotional = st.EmotionChain[n-1].Emotion
	}
	if emotional == "" {
		emotional = flow.SentimentNeutral
	}
	return Context{
		UserIntent:         parsed.Intent,
		UserSentiment:      parsed.Sentiment,
		ConversationPhase:  st.InteractionDynamics.ConversationPhase,
		UserEngagement:     st.InteractionDynamics.UserEngagementLevel,
		TopicContinuity:    topicContinuity(st),
		ConsistencyScore:   st.RoleCognition.ConsistencyScore,
		EmotionalState:     emotional,
		AvailableFunctions: st.CapabilityPermissions.AvailableFunctions,
	}
}

func (c Condition) matches(dctx Context) bool {
	if len(c.Intents) > 0 && !containsString(c.Intents, dctx.UserIntent) {
		return false
	}
	if c.ConversationPhase != "" && dctx.ConversationPhase != c.ConversationPhase {
		return false
	}
	if c.MinEngagement != nil && dctx.UserEngagement < *c.MinEngagement {
		return false
	}
	if len(c.Sentiments) > 0 && !containsString(c.Sentiments, dctx.UserSentiment) {
		return false
	}
	for _, fn := range c.RequiredFunctions {
		if !containsString(dctx.AvailableFunctions, fn) {
			return false
		}
	}
	if c.MinConsistency != nil && dctx.ConsistencyScore < *c.MinConsistency {
		return false
	}
	return true
}

// matchScore weights the satisfied condition dimensions: intent 0.3,
// phase 0.2, engagement 0.2, sentiment 0.15, consistency 0.15 (always
// contributes), normalized by the weight actually in play.
func matchScore(c Condition, dctx Context) float64 {
	score, total := 0.0, 0.0
	if len(c.Intents) > 0 {
		if containsString(c.Intents, dctx.UserIntent) {
			score += 0.3
		}
		total += 0.3
	}
	if c.ConversationPhase != "" {
		if dctx.ConversationPhase == c.ConversationPhase {
			score += 0.2
		}
		total += 0.2
	}
	if c.MinEngagement != nil {
		e := dctx.UserEngagement / 0.8
		if e > 1 {
			e = 1
		}
		score += e * 0.2
		total += 0.2
	}
	if len(c.Sentiments) > 0 {
		if containsString(c.Sentiments, dctx.UserSentiment) {
			score += 0.15
		}
		total += 0.15
	}
	score += dctx.ConsistencyScore * 0.15
	total += 0.15
	return score / total
}

// confidence = 0.7 base + 0.2*engagement + 0.2*continuity +
// 0.1*consistency, clamped to [0, 1]. Policy constants, not tuned values.
func confidence(dctx Context) float64 {
	c := 0.7 + 0.2*dctx.UserEngagement + 0.2*dctx.TopicContinuity + 0.1*dctx.ConsistencyScore
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

func topicContinuity(st *flow.ConversationState) float64 {
	h := st.InteractionHistory
	if len(h) < 2 {
		return 0.5
	}
	if h[len(h)-1].Intent == h[len(h)-2].Intent {
		return 0.8
	}
	return 0.3
}

func reasoning(rule Rule, dctx Context, conf float64) string {
	var why string
	switch rule.DecisionType {
	case flow.DecisionRespondImmediately:
		why = "input is clear, responding immediately"
	case flow.DecisionAskClarification:
		why = "input needs clarification"
	case flow.DecisionProvideInformation:
		why = "information requested, giving a detailed reply"
	case flow.DecisionCreativeResponse:
		why = "creative content requested"
	case flow.DecisionEmotionalSupport:
		why = "user appears to need emotional support"
	case flow.DecisionTopicSwitch:
		why = "user asked to change the subject"
	default:
		why = "matched rule " + rule.ID
	}
	var level string
	switch {
	case conf > 0.8:
		level = "high"
	case conf > 0.6:
		level = "medium"
	default:
		level = "low"
	}
	return fmt.Sprintf("%s (intent=%s, %s confidence)", why, dctx.UserIntent, level)
}

func nextSteps(action string) []string {
	switch action {
	case flow.ActionGenerateStreaming:
		return []string{"start_streaming_response", "stream_response_chunks", "finalize_streaming"}
	case flow.ActionRequestMoreInfo:
		return []string{"prepare_clarification_question", "send_question", "wait_for_user_response"}
	default:
		return []string{"generate_response", "update_conversation_state"}
	}
}

// stateChanges is the patch the caller applies; the engine itself never
// writes state.
func stateChanges(decisionType string, dctx Context, st *flow.ConversationState) flow.StateChanges {
	var changes flow.StateChanges
	switch decisionType {
	case flow.DecisionTopicSwitch:
		changes.TopicFlow = dctx.UserIntent
		changes.ConversationPhase = "main"
	case flow.DecisionEmotionalSupport:
		r := st.InteractionDynamics.EmotionalResonance + 0.2
		if r > 1 {
			r = 1
		}
		changes.EmotionalResonance = &r
	case flow.DecisionAskClarification:
		changes.ResponseUrgency = "low"
		changes.ConversationPhase = "clarification"
	}
	return changes
}

func fallbackDecision(reason string, conf float64) flow.FlowDecision {
	return flow.FlowDecision{
		DecisionType: flow.DecisionRespondImmediately,
		Action:       flow.ActionGenerateText,
		Parameters:   map[string]interface{}{"fallback": true},
		Confidence:   conf,
		Reasoning:    reason,
		NextSteps:    []string{"generate_response"},
		StateChanges: flow.StateChanges{},
	}
}

func copyParams(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
