package output

import (
	"fmt"
	"strings"

	"ai-companion-be/pkg/flow"
)

// Template keys.
const (
	TemplateGreeting         = "greeting"
	TemplateClarification    = "clarification"
	TemplateEmotionalSupport = "emotional_support"
	TemplateCreativeRequest  = "creative_request"
	TemplateError            = "error"
)

// RenderTemplate produces the canned reply for a template key, filled in
// from the character's role cognition. Returns "" for an unknown key so the
// caller falls through to prompt-based generation.
func RenderTemplate(key string, decision flow.FlowDecision, state *flow.ConversationState) string {
	identity := state.RoleCognition.CharacterIdentity
	if identity == "" {
		identity = "AI助手"
	}

	switch key {
	case TemplateGreeting:
		traits := state.RoleCognition.PersonalityTraits
		if len(traits) > 2 {
			traits = traits[:2]
		}
		desc := strings.Join(traits, "、")
		if desc == "" {
			desc = "友好"
		}
		return fmt.Sprintf("你好！我是%s，很高兴见到你！我是一个%s的AI。", identity, desc)
	case TemplateClarification:
		return "我需要更多信息来帮助你。能否详细说明一下你的具体需求？"
	case TemplateEmotionalSupport:
		return "我理解你的感受。我会尽力帮助你。"
	case TemplateCreativeRequest:
		// Creative requests still go to the model; no canned body exists.
		return ""
	case TemplateError:
		msg := "未知错误"
		if m, ok := decision.Parameters["error_message"].(string); ok && m != "" {
			msg = m
		}
		return fmt.Sprintf("抱歉，处理你的请求时遇到了问题：%s。请稍后再试。", msg)
	}
	return ""
}
