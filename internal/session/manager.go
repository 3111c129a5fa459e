package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/activegame"
)

// Manager is the process-wide registry of connected sessions: playerId to
// Session, plus a reconnect-token index for players whose socket drops and
// comes back. At most one Session is ever registered per player id; a new
// registration for an already-connected player supersedes (closes) the old
// socket rather than running two live sockets for one identity.
type Manager struct {
	mu            sync.RWMutex
	sessions      map[string]*Session
	tokens        map[string]string    // token -> playerID
	byPlayer      map[string]string    // playerID -> token
	disconnectedAt map[string]time.Time // playerID -> time its session was last removed
	logger        zerolog.Logger
}

// NewManager builds an empty session registry.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		sessions:       make(map[string]*Session),
		tokens:         make(map[string]string),
		byPlayer:       make(map[string]string),
		disconnectedAt: make(map[string]time.Time),
		logger:         logger.With().Str("component", "session_manager").Logger(),
	}
}

// Register associates sess with playerID, superseding any previously
// registered socket for that player. It returns the reconnect token the
// client should hold onto: a player who already holds a valid token keeps
// it across reconnects, so a token is minted only the first time a player
// id is seen (or after its prior token was forgotten via Forget).
func (m *Manager) Register(playerID string, sess *Session) (token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sessions[playerID]; ok && prev != sess {
		m.logger.Info().Str("player_id", playerID).Msg("superseding existing session")
		go func() { _ = prev.Close() }()
	}
	m.sessions[playerID] = sess
	delete(m.disconnectedAt, playerID)

	if existing, ok := m.byPlayer[playerID]; ok {
		return existing
	}
	token = uuid.NewString()
	m.byPlayer[playerID] = token
	m.tokens[token] = playerID
	return token
}

// Resolve looks up the player id a reconnect token was issued for.
func (m *Manager) Resolve(token string) (playerID string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	playerID, ok = m.tokens[token]
	return
}

// Get returns the currently registered session for playerID, if connected.
func (m *Manager) Get(playerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[playerID]
	return sess, ok
}

// Disconnect removes playerID's socket registration. The reconnect token
// stays valid so a later Register call for the same player id returns the
// same token instead of minting a new one.
func (m *Manager) Disconnect(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, playerID)
	m.disconnectedAt[playerID] = time.Now()
}

// Forget revokes a reconnect token outright, e.g. once a room considers a
// disconnected seat abandoned past some timeout. A later reconnect attempt
// with this token fails, and the next Register for the player id mints a
// fresh one.
func (m *Manager) Forget(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.byPlayer[playerID]; ok {
		delete(m.tokens, token)
		delete(m.byPlayer, playerID)
	}
}

// Publish implements activegame.Publisher: it delivers message to playerID's
// live session, if one is currently connected. A disconnected player simply
// misses the broadcast; the room keeps their seat, and once a new socket
// registers for their player id they receive the room's next broadcast.
// Nothing is sent to them at reconnect time itself. The envelope type is derived from
// the message's own shape so callers never have to pass a type string
// alongside it.
func (m *Manager) Publish(playerID string, message any) {
	sess, ok := m.Get(playerID)
	if !ok {
		return
	}
	msgType := "gameState"
	switch message.(type) {
	case activegame.ChatMessage:
		msgType = "chat"
	case activegame.TimeWarning:
		msgType = "timeWarning"
	case activegame.GameOver:
		msgType = "gameOver"
	}
	if err := sess.Send(msgType, message); err != nil {
		m.logger.Debug().Str("player_id", playerID).Err(err).Msg("publish failed")
	}
}

// Count returns the number of currently connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StaleSince reports whether playerID has been disconnected since before
// cutoff (or was never connected at all). Used to age out reconnect tokens
// for players who never came back.
func (m *Manager) StaleSince(playerID string, cutoff time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, connected := m.sessions[playerID]; connected {
		return false
	}
	disconnectedAt, ok := m.disconnectedAt[playerID]
	if !ok {
		return true
	}
	return disconnectedAt.Before(cutoff)
}
