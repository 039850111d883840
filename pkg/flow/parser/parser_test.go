package parser

import (
	"testing"

	"ai-companion-be/pkg/flow"
)

func TestParseIntent(t *testing.T) {
	p := New()

	tests := []struct {
		name       string
		text       string
		wantIntent string
	}{
		{"chinese greeting", "你好", "greeting"},
		{"english greeting", "hello there", "greeting"},
		{"question", "为什么天是蓝色的？", "question"},
		{"story request", "给我讲个故事吧", "story_request"},
		{"creative request", "imagine a creative design", "creative_request"},
		{"farewell", "再见", "farewell"},
		{"gibberish", "xzqv", flow.IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.text)
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %q, want %q", got.Intent, tt.wantIntent)
			}
		})
	}
}

func TestParseGreetingConfidence(t *testing.T) {
	p := New()
	got := p.Parse("你好")

	if got.Intent != "greeting" {
		t.Fatalf("Intent = %q, want greeting", got.Intent)
	}
	if got.Confidence < 0.8 {
		t.Errorf("Confidence = %v, want >= 0.8", got.Confidence)
	}
}

func TestParseConfidenceBounds(t *testing.T) {
	p := New()

	texts := []string{
		"",
		"   ",
		"你好",
		"hello how are you today",
		"给我讲个关于北京的故事，今天下午3点我们见面",
		"!!!???",
		"xzqv wtf zzz",
	}

	for _, text := range texts {
		got := p.Parse(text)
		if got.Confidence < 0.1 || got.Confidence > 1.0 {
			t.Errorf("Parse(%q).Confidence = %v, want within [0.1, 1.0]", text, got.Confidence)
		}
	}
}

func TestParseEmptyInput(t *testing.T) {
	p := New()
	got := p.Parse("")

	if got.Intent != flow.IntentUnknown {
		t.Errorf("Intent = %q, want %q", got.Intent, flow.IntentUnknown)
	}
	if got.Sentiment != flow.SentimentNeutral {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, flow.SentimentNeutral)
	}
	if got.Confidence != 0.1 {
		t.Errorf("Confidence = %v, want 0.1", got.Confidence)
	}
	if got.Language != "unknown" {
		t.Errorf("Language = %q, want unknown", got.Language)
	}
	if got.Entities == nil {
		t.Error("Entities should be an empty slice, not nil")
	}
}

func TestParseEntityDeduplication(t *testing.T) {
	p := New()
	got := p.Parse("今天今天")

	count := 0
	for _, e := range got.Entities {
		if e.Type == "time" && e.Value == "今天" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate time entity kept %d times, want 1", count)
	}
}

func TestParseEntitySpansIndexOriginalText(t *testing.T) {
	p := New()
	original := "  See  you Tomorrow  "
	got := p.Parse(original)

	var found bool
	for _, e := range got.Entities {
		if e.Type != "time" {
			continue
		}
		found = true
		if e.Value != "Tomorrow" {
			t.Errorf("Value = %q, want original casing Tomorrow", e.Value)
		}
		if original[e.Start:e.End] != e.Value {
			t.Errorf("span [%d:%d] = %q, does not index the original text",
				e.Start, e.End, original[e.Start:e.End])
		}
	}
	if !found {
		t.Fatal("no time entity extracted")
	}
}

func TestParseLanguageDetection(t *testing.T) {
	p := New()

	tests := []struct {
		text string
		want string
	}{
		{"你好，今天怎么样", "chinese"},
		{"hello how are you", "english"},
	}

	for _, tt := range tests {
		if got := p.Parse(tt.text); got.Language != tt.want {
			t.Errorf("Parse(%q).Language = %q, want %q", tt.text, got.Language, tt.want)
		}
	}
}

func TestParseStats(t *testing.T) {
	p := New()
	p.Parse("你好")
	p.Parse("")

	stats := p.GetStats()
	if stats.TotalParsed != 2 {
		t.Errorf("TotalParsed = %d, want 2", stats.TotalParsed)
	}
	if stats.SuccessfulParsed != 1 {
		t.Errorf("SuccessfulParsed = %d, want 1", stats.SuccessfulParsed)
	}
	if stats.LowConfidenceParsed != 1 {
		t.Errorf("LowConfidenceParsed = %d, want 1", stats.LowConfidenceParsed)
	}
}
