package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal in-memory stand-in for *websocket.Conn: reads come
// from a preloaded queue, writes are recorded for assertions.
type fakeConn struct {
	mu      sync.Mutex
	inbox   []Envelope
	written []Envelope
	closed  bool
}

func (c *fakeConn) ReadJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.inbox) == 0 {
		// Block until Close is called; then simulate a closed socket by
		// returning an error.
		if c.closed {
			return errors.New("fakeConn: no more messages")
		}
		c.mu.Unlock()
		time.Sleep(time.Millisecond)
		c.mu.Lock()
	}
	env := c.inbox[0]
	c.inbox = c.inbox[1:]
	body, _ := json.Marshal(env)
	return json.Unmarshal(body, v)
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	env, ok := v.(Envelope)
	if !ok {
		body, _ := json.Marshal(v)
		_ = json.Unmarshal(body, &env)
	}
	c.written = append(c.written, env)
	return nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }
func (c *fakeConn) SetReadLimit(limit int64)                        {}
func (c *fakeConn) SetReadDeadline(t time.Time) error                { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error               { return nil }
func (c *fakeConn) SetPongHandler(h func(string) error)              {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) writtenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

func TestSessionSendDeliversEnvelopeToConn(t *testing.T) {
	conn := &fakeConn{}
	sess := New(conn, "A", "Alice", zerolog.Nop())
	sess.Start(func(*Session, Envelope) {})
	defer sess.Close()

	require.NoError(t, sess.Send("greeting", map[string]string{"hi": "there"}))

	require.Eventually(t, func() bool {
		return conn.writtenCount() == 1
	}, time.Second, time.Millisecond)
}

func TestSessionReadPumpDispatchesInboundEnvelopes(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"ping": "pong"})
	conn := &fakeConn{inbox: []Envelope{{Action: "ready", Payload: body}}}
	sess := New(conn, "A", "Alice", zerolog.Nop())

	received := make(chan Envelope, 1)
	sess.Start(func(s *Session, env Envelope) {
		received <- env
	})
	defer sess.Close()

	select {
	case env := <-received:
		require.Equal(t, "ready", env.Action)
	case <-time.After(time.Second):
		t.Fatal("dispatch was never called")
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	conn := &fakeConn{}
	sess := New(conn, "A", "Alice", zerolog.Nop())
	sess.Start(func(*Session, Envelope) {})

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not close")
	}
}

func TestSessionGameIDRoundTrips(t *testing.T) {
	conn := &fakeConn{}
	sess := New(conn, "A", "Alice", zerolog.Nop())
	defer sess.Close()

	require.Equal(t, "", sess.GameID())
	sess.SetGameID("room1")
	require.Equal(t, "room1", sess.GameID())
}
