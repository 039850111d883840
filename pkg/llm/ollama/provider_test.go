package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-companion-be/pkg/llm"
)

func TestChatSendsHistoryAndReturnsContent(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Model:   got.Model,
			Message: chatMessage{Role: "assistant", Content: "好的。"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "qwen2")
	out, err := p.Chat(context.Background(),
		[]llm.Message{{Role: "model", Content: "之前的回复"}, {Role: "user", Content: "你好"}},
		llm.WithMaxTokens(200),
	)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "好的。" {
		t.Errorf("content = %q, want 好的。", out)
	}
	if got.Model != "qwen2" {
		t.Errorf("model = %q, want qwen2", got.Model)
	}
	if got.Stream {
		t.Error("stream must be false")
	}
	if got.Messages[0].Role != "assistant" {
		t.Errorf("role %q was not normalized to assistant", got.Messages[0].Role)
	}
	if got.Options == nil || got.Options.NumPredict != 200 {
		t.Errorf("options = %+v, want num_predict 200", got.Options)
	}
}

func TestChatReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "qwen2")
	if _, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "你好"}}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
