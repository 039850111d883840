package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

// fakeTransport records every delivered frame.
type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	fail   bool
}

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail || t.closed {
		return ErrTransportClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.frames = append(t.frames, cp)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) typed() []map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(t.frames))
	for _, f := range t.frames {
		var m map[string]interface{}
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (t *fakeTransport) countType(frameType string) int {
	n := 0
	for _, m := range t.typed() {
		if m["type"] == frameType {
			n++
		}
	}
	return n
}

func newTestManager() *Manager {
	return NewManager(noopLogger{}, time.Minute, time.Minute)
}

func TestConnectSendsEstablished(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}

	m.Connect(7, tr)

	frames := tr.typed()
	require.Len(t, frames, 1)
	assert.Equal(t, OutConnectionEstablished, frames[0]["type"])

	stats := m.GetStats()
	assert.Equal(t, 1, stats.ActiveConnections)
}

func TestConnectReplacesPriorTransport(t *testing.T) {
	m := newTestManager()
	first := &fakeTransport{}
	second := &fakeTransport{}

	m.Connect(7, first)
	m.Connect(7, second)

	assert.True(t, first.closed, "the replaced transport must be closed")
	assert.Equal(t, 1, m.GetStats().ActiveConnections)

	// The stale connection's teardown must not kill the replacement.
	m.Disconnect(7, first)
	assert.Equal(t, 1, m.GetStats().ActiveConnections)

	m.Disconnect(7, second)
	assert.Equal(t, 0, m.GetStats().ActiveConnections)
}

func TestHandleInboundMalformedJSON(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	m.HandleInbound(7, []byte("{not json"))

	assert.Equal(t, 1, tr.countType(OutError), "malformed frames get an error envelope")
	assert.False(t, tr.closed, "the connection stays open")
	assert.Equal(t, 1, m.GetStats().ActiveConnections)
}

func TestHandleInboundPing(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	m.HandleInbound(7, []byte(`{"type":"ping"}`))

	assert.Equal(t, 1, tr.countType(OutPong))
}

func TestBeginTaskRequiresConnection(t *testing.T) {
	m := newTestManager()
	_, _, err := m.BeginTask(42, "m1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBeginTaskCancelsPrevious(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	ctxA, finishA, err := m.BeginTask(7, "msg-a")
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		<-ctxA.Done()
		finishA()
		close(released)
	}()

	ctxB, finishB, err := m.BeginTask(7, "msg-b")
	require.NoError(t, err)
	defer finishB()

	<-released
	assert.Error(t, ctxA.Err(), "claiming the slot cancels the previous task")
	assert.NoError(t, ctxB.Err(), "the new task context stays live")
	assert.Equal(t, 1, m.GetStats().InFlightTasks)
}

// Dispatching a second message mid-stream must abandon the first: no
// ai_stream_end ever carries the first message id, and exactly one
// completion reaches the client.
func TestStreamCancelAndReplace(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	chunksA := []string{"你好", "，我", "在想"}
	finalB := "第二条消息的完整回复。"

	ctxA, finishA, err := m.BeginTask(7, "msg-a")
	require.NoError(t, err)

	require.NoError(t, m.StreamStart(7, "msg-a"))
	require.NoError(t, m.StreamChunk(7, "msg-a", chunksA[0]))

	// Generation A notices cancellation and stops before sending its end
	// frame, exactly like the chat service's task context checks.
	aDone := make(chan struct{})
	go func() {
		defer close(aDone)
		<-ctxA.Done()
		finishA()
	}()

	ctxB, finishB, err := m.BeginTask(7, "msg-b")
	require.NoError(t, err)
	<-aDone

	require.NoError(t, m.StreamStart(7, "msg-b"))
	for _, chunk := range []string{"第二条", "消息的", "完整回复。"} {
		require.NoError(t, ctxB.Err())
		require.NoError(t, m.StreamChunk(7, "msg-b", chunk))
	}
	require.NoError(t, m.StreamEnd(7, "msg-b", finalB))
	finishB()

	ends := 0
	for _, f := range tr.typed() {
		if f["type"] != OutAIStreamEnd {
			continue
		}
		ends++
		assert.Equal(t, "msg-b", f["message_id"], "no completion may carry the abandoned message id")
		assert.Equal(t, finalB, f["final_content"])
	}
	assert.Equal(t, 1, ends, "exactly one generation completes")
}

func TestStreamEndMatchesChunkConcatenation(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	chunks := []string{"从前有", "一座山", "。"}
	final := "从前有一座山。"

	require.NoError(t, m.StreamStart(7, "msg-1"))
	for _, c := range chunks {
		require.NoError(t, m.StreamChunk(7, "msg-1", c))
	}
	require.NoError(t, m.StreamEnd(7, "msg-1", final))

	var joined string
	var finalContent string
	for _, f := range tr.typed() {
		switch f["type"] {
		case OutAIStreamChunk:
			joined += f["chunk"].(string)
		case OutAIStreamEnd:
			finalContent = f["final_content"].(string)
		}
	}
	assert.Equal(t, finalContent, joined, "chunk concatenation equals the final content byte for byte")
}

func TestSendFailureDisconnectsAndCancelsTask(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	taskCtx, finish, err := m.BeginTask(7, "msg-1")
	require.NoError(t, err)
	defer finish()

	tr.mu.Lock()
	tr.fail = true
	tr.mu.Unlock()

	err = m.StreamChunk(7, "msg-1", "晚了")
	assert.Error(t, err, "delivery failure surfaces to the generation loop")
	assert.Equal(t, 0, m.GetStats().ActiveConnections)
	assert.Error(t, taskCtx.Err(), "disconnect cancels the in-flight task")
}

func TestCancelTask(t *testing.T) {
	m := newTestManager()
	tr := &fakeTransport{}
	m.Connect(7, tr)

	taskCtx, finish, err := m.BeginTask(7, "msg-1")
	require.NoError(t, err)
	defer finish()

	m.CancelTask(7)
	assert.ErrorIs(t, taskCtx.Err(), context.Canceled)
}

func TestSweepIdleDisconnects(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	current := now
	m := NewManager(noopLogger{}, 10*time.Minute, time.Minute).WithClock(func() time.Time { return current })

	tr := &fakeTransport{}
	m.Connect(7, tr)

	current = now.Add(5 * time.Minute)
	m.sweepIdle()
	assert.Equal(t, 1, m.GetStats().ActiveConnections, "active sessions survive the sweep")

	current = now.Add(11 * time.Minute)
	m.sweepIdle()
	assert.Equal(t, 0, m.GetStats().ActiveConnections, "idle sessions are reaped")
	assert.True(t, tr.closed)
}
