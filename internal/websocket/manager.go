package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ai-companion-be/internal/pkg/logger"
)

// ErrNotConnected reports an operation against a user with no live session.
var ErrNotConnected = errors.New("user not connected")

// Dispatcher routes decoded envelopes to the service layer. Long-running
// work (generation) must not block the caller: the chat path claims its
// task slot and continues on its own goroutine.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID int64, env Envelope)
}

// ManagerStats is a snapshot of the delivery layer.
type ManagerStats struct {
	ActiveConnections int `json:"active_connections"`
	InFlightTasks     int `json:"in_flight_tasks"`
}

type generationTask struct {
	messageID string
	cancel    context.CancelFunc
	done      chan struct{}
	doneOnce  sync.Once
}

func (t *generationTask) finish() {
	t.cancel()
	t.doneOnce.Do(func() { close(t.done) })
}

type session struct {
	userID       int64
	transport    Transport
	characterID  string
	lastActivity time.Time
	task         *generationTask
}

// Manager owns one live connection per user and enforces the single
// in-flight generation task invariant: claiming a task slot cancels and
// awaits the user's previous task first.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*session

	dispatcher Dispatcher
	logger     logger.ILogger

	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

func NewManager(log logger.ILogger, idleTimeout, sweepInterval time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Manager{
		sessions:      make(map[int64]*session),
		logger:        log,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// SetDispatcher binds the envelope router. Called once at bootstrap.
func (m *Manager) SetDispatcher(d Dispatcher) {
	m.dispatcher = d
}

// WithClock injects a deterministic clock for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Connect registers a transport for a user, replacing any prior connection.
// The prior connection's generation task is torn down first.
func (m *Manager) Connect(userID int64, t Transport) {
	m.mu.Lock()
	prev := m.sessions[userID]
	m.sessions[userID] = &session{
		userID:       userID,
		transport:    t,
		lastActivity: m.now(),
	}
	m.mu.Unlock()

	if prev != nil {
		if prev.task != nil {
			prev.task.finish()
		}
		prev.transport.Close()
		m.logger.Info("Manager", "connection replaced", map[string]interface{}{"user_id": userID})
	}

	m.sendJSON(userID, connectionEstablishedEnvelope{Type: OutConnectionEstablished, UserID: userID})
	m.logger.Info("Manager", "client connected", map[string]interface{}{"user_id": userID})
}

// Disconnect tears down a user's session. When from is non-nil, only the
// session still bound to that transport is removed, so a stale connection's
// teardown cannot kill its replacement.
func (m *Manager) Disconnect(userID int64, from Transport) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok || (from != nil && sess.transport != from) {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, userID)
	m.mu.Unlock()

	if sess.task != nil {
		sess.task.finish()
	}
	sess.transport.Close()
	m.logger.Info("Manager", "client disconnected", map[string]interface{}{"user_id": userID})
}

// BeginTask claims the user's single generation slot. Any in-flight task is
// cancelled and awaited before the new slot is handed out, so no two
// generations for one user ever overlap. The returned finish func releases
// the slot and must always be called.
func (m *Manager) BeginTask(userID int64, messageID string) (context.Context, func(), error) {
	for {
		m.mu.Lock()
		sess, ok := m.sessions[userID]
		if !ok {
			m.mu.Unlock()
			return nil, nil, ErrNotConnected
		}
		prev := sess.task
		if prev == nil {
			ctx, cancel := context.WithCancel(context.Background())
			t := &generationTask{
				messageID: messageID,
				cancel:    cancel,
				done:      make(chan struct{}),
			}
			sess.task = t
			m.mu.Unlock()

			finish := func() {
				t.finish()
				m.mu.Lock()
				if cur, ok := m.sessions[userID]; ok && cur.task == t {
					cur.task = nil
				}
				m.mu.Unlock()
			}
			return ctx, finish, nil
		}
		m.mu.Unlock()

		// Last message wins: abandon the previous generation and wait for
		// it to release the slot before claiming it.
		prev.cancel()
		<-prev.done
		m.mu.Lock()
		if cur, ok := m.sessions[userID]; ok && cur.task == prev {
			cur.task = nil
		}
		m.mu.Unlock()
	}
}

// CancelTask cancels a user's in-flight generation without waiting.
func (m *Manager) CancelTask(userID int64) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	var t *generationTask
	if ok {
		t = sess.task
	}
	m.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// BindCharacter records the session's active AI character.
func (m *Manager) BindCharacter(userID int64, characterID string) {
	m.mu.Lock()
	if sess, ok := m.sessions[userID]; ok {
		sess.characterID = characterID
	}
	m.mu.Unlock()
}

// Character returns the session's active AI character, or "".
func (m *Manager) Character(userID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.characterID
	}
	return ""
}

// Touch refreshes a session's activity timestamp.
func (m *Manager) Touch(userID int64) {
	m.mu.Lock()
	if sess, ok := m.sessions[userID]; ok {
		sess.lastActivity = m.now()
	}
	m.mu.Unlock()
}

// HandleInbound decodes one frame and routes it. Malformed JSON yields an
// error envelope without closing the connection.
func (m *Manager) HandleInbound(userID int64, data []byte) {
	m.Touch(userID)

	env, err := DecodeEnvelope(data)
	if err != nil {
		m.sendJSON(userID, errorEnvelope{Type: OutError, Message: "invalid json"})
		return
	}

	if env.Type == "ping" {
		m.sendJSON(userID, newPongEnvelope(m.now()))
		return
	}

	if m.dispatcher == nil {
		m.sendJSON(userID, errorEnvelope{Type: OutError, Message: "service unavailable"})
		return
	}
	m.dispatcher.Dispatch(context.Background(), userID, env)
}

// --- delivery primitives ---

// SendJSON delivers one envelope to a user. A write failure is treated as a
// disconnect.
func (m *Manager) SendJSON(userID int64, v interface{}) error {
	return m.sendJSON(userID, v)
}

func (m *Manager) StreamStart(userID int64, messageID string) error {
	return m.sendJSON(userID, streamStartEnvelope{Type: OutAIStreamStart, MessageID: messageID})
}

func (m *Manager) StreamChunk(userID int64, messageID, chunk string) error {
	return m.sendJSON(userID, streamChunkEnvelope{Type: OutAIStreamChunk, MessageID: messageID, Chunk: chunk})
}

// StreamEnd carries the full final content for clients that discard
// partial chunks. It is only sent after every chunk envelope.
func (m *Manager) StreamEnd(userID int64, messageID, finalContent string) error {
	return m.sendJSON(userID, streamEndEnvelope{Type: OutAIStreamEnd, MessageID: messageID, FinalContent: finalContent})
}

func (m *Manager) StreamError(userID int64, message string) error {
	return m.sendJSON(userID, aiErrorEnvelope{Type: OutAIError, Error: message})
}

// SendError reports a request-shaped problem without closing the
// connection.
func (m *Manager) SendError(userID int64, message string) error {
	return m.sendJSON(userID, errorEnvelope{Type: OutError, Message: message})
}

func (m *Manager) SendUserMessageSent(userID int64, messageID, conversationID string) error {
	return m.sendJSON(userID, userMessageSentEnvelope{
		Type:           OutUserMessageSent,
		MessageID:      messageID,
		ConversationID: conversationID,
	})
}

func (m *Manager) SendSessionStarted(userID int64, conversationID, characterID string) error {
	return m.sendJSON(userID, sessionEnvelope{
		Type:           OutAISessionStarted,
		ConversationID: conversationID,
		AICharacterID:  characterID,
	})
}

func (m *Manager) SendSessionEnded(userID int64, conversationID string) error {
	return m.sendJSON(userID, sessionEnvelope{
		Type:           OutAISessionEnded,
		ConversationID: conversationID,
	})
}

func (m *Manager) sendJSON(userID int64, v interface{}) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := sess.transport.Send(data); err != nil {
		m.Disconnect(userID, sess.transport)
		return err
	}
	return nil
}

// --- lifecycle ---

// Run sweeps idle sessions until the context ends. Dead transports are
// reaped by the per-connection ping in writePump; this handles connections
// that are alive but inactive past the idle timeout.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

func (m *Manager) sweepIdle() {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*session
	for _, sess := range m.sessions {
		if sess.lastActivity.Before(cutoff) {
			idle = append(idle, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		m.logger.Info("Manager", "disconnecting idle session", map[string]interface{}{
			"user_id": sess.userID,
		})
		m.Disconnect(sess.userID, sess.transport)
	}
}

// GetStats snapshots the delivery layer counters.
func (m *Manager) GetStats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := ManagerStats{ActiveConnections: len(m.sessions)}
	for _, sess := range m.sessions {
		if sess.task != nil {
			stats.InFlightTasks++
		}
	}
	return stats
}
