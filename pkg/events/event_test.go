package events

import (
	"testing"
	"time"
)

func TestResponsePersistedPayload(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	e := ResponsePersisted{
		UserID:         7,
		ConversationID: "c1",
		MessageID:      "m1",
		DecisionType:   "respond_immediately",
		Confidence:     0.9,
		At:             at,
	}

	if got := e.EventType(); got != TypeResponsePersisted {
		t.Errorf("EventType = %q, want %q", got, TypeResponsePersisted)
	}
	payload := e.Payload()
	if payload["user_id"] != int64(7) {
		t.Errorf("user_id = %v, want 7", payload["user_id"])
	}
	if payload["decision_type"] != "respond_immediately" {
		t.Errorf("decision_type = %v", payload["decision_type"])
	}
	if payload["at"] != "2025-03-01T10:00:00Z" {
		t.Errorf("at = %v", payload["at"])
	}
}

func TestSessionEventPayload(t *testing.T) {
	e := SessionEvent{
		Type:          TypeSessionStarted,
		UserID:        7,
		AICharacterID: "char-1",
		At:            time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	if got := e.EventType(); got != TypeSessionStarted {
		t.Errorf("EventType = %q, want %q", got, TypeSessionStarted)
	}
	if got := e.Payload()["ai_character_id"]; got != "char-1" {
		t.Errorf("ai_character_id = %v, want char-1", got)
	}
}
