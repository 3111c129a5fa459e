// Package session wraps a single client socket and the registry that maps
// player ids to their live socket. Of the server's internal packages it is
// the only one that holds a websocket (cmd/server upgrades the request and
// hands the conn to New); internal/activegame and internal/wsapi talk to a
// Session or to the Manager's Publisher interface instead.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// socketConn is the subset of *websocket.Conn a Session needs. Tests supply
// a fake implementation instead of dialing a real socket.
type socketConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32768
)

// Envelope is the wire shape of every message exchanged over a Session, in
// either direction: {action, payload} in, {type, payload} out, identified
// generically here as action/type so one struct can (de)serialize both.
type Envelope struct {
	Action  string          `json:"action,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Dispatch handles one decoded inbound envelope for a session.
type Dispatch func(sess *Session, env Envelope)

// Session is one connected client's socket plus the identity it has claimed.
type Session struct {
	conn   socketConn
	send   chan Envelope
	logger zerolog.Logger

	mu          sync.RWMutex
	playerID    string
	displayName string
	gameID      string
	lastSeen    time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New wraps conn in a Session. The caller still must call Start to begin
// pumping messages.
func New(conn socketConn, playerID, displayName string, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:        conn,
		send:        make(chan Envelope, 256),
		logger:      logger.With().Str("player_id", playerID).Logger(),
		playerID:    playerID,
		displayName: displayName,
		lastSeen:    time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start spawns the read and write pumps. dispatch is invoked from the read
// pump's goroutine for every decoded inbound envelope.
func (s *Session) Start(dispatch Dispatch) {
	go s.writePump()
	go s.readPump(dispatch)
}

// Close tears down the socket and stops both pumps. Safe to call more than
// once and from any goroutine.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.send)
		err = s.conn.Close()
	})
	return err
}

// Done reports when this session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// PlayerID returns the session's claimed player identity, "" before the
// socket has completed its identify handshake.
func (s *Session) PlayerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerID
}

// SetPlayerID claims a player identity for this socket, once the identify
// handshake resolves it (either freshly minted or recovered from a
// reconnect token).
func (s *Session) SetPlayerID(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = playerID
}

// DisplayName returns the session's claimed display name.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// SetDisplayName records the display name claimed at identify time.
func (s *Session) SetDisplayName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayName = name
}

// SetGameID records which room this session is currently seated in, or ""
// once it leaves.
func (s *Session) SetGameID(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameID = gameID
}

// GameID returns the room this session is currently seated in, if any.
func (s *Session) GameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameID
}

// LastSeen returns the last time this session received a message or a pong
// from its client. It stops changing once the session has been closed.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Send queues a server-to-client message of the given type for delivery. It
// never blocks past the socket's buffer: a full buffer closes the session
// rather than stall the room goroutine that called it.
func (s *Session) Send(msgType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Type: msgType, Payload: body}

	select {
	case s.send <- env:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		s.logger.Warn().Msg("send buffer full, closing session")
		_ = s.Close()
		return websocket.ErrCloseSent
	}
}

func (s *Session) readPump(dispatch Dispatch) {
	defer func() { _ = s.Close() }()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug().Err(err).Msg("read pump closing on socket error")
			}
			return
		}
		s.touch()
		dispatch(s, env)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				s.logger.Debug().Err(err).Msg("write pump closing on socket error")
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}
