// Package wsclient is a thin WebSocket client for the {action, payload}
// protocol internal/wsapi serves: connect, send named actions, and dispatch
// incoming {type, payload} envelopes to registered handlers. It exists for
// cmd/client, a debug TUI that exercises the protocol as a real player would
// rather than through unit tests.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/validator"
	"github.com/lox/pokerforbots-server/internal/wsapi"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Envelope mirrors session.Envelope: {action, payload} outbound,
// {type, payload} inbound.
type Envelope struct {
	Action  string          `json:"action,omitempty"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler processes one decoded inbound envelope's raw payload.
type Handler func(payload json.RawMessage)

// Client is a single connection to a pokerforbots-server instance.
type Client struct {
	conn   *websocket.Conn
	logger zerolog.Logger

	send chan Envelope

	mu       sync.RWMutex
	handlers map[string][]Handler

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Dial connects to serverURL (an http(s):// or ws(s):// base address) at
// its /ws path and starts the read/write pumps.
func Dial(serverURL string, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("wsclient: invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wsclient: dial failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:     conn,
		logger:   logger.With().Str("component", "wsclient").Logger(),
		send:     make(chan Envelope, 256),
		handlers: make(map[string][]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}

	go c.writePump()
	go c.readPump()

	return c, nil
}

// On registers handler for every inbound envelope whose type matches
// msgType. More than one handler may be registered for the same type.
func (c *Client) On(msgType string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = append(c.handlers[msgType], handler)
}

// Close tears down the connection and stops both pumps.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Done reports when this client's connection has been torn down.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) enqueue(action string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Action: action, Payload: body}
	select {
	case c.send <- env:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Identify claims a player identity, optionally resuming one via token.
func (c *Client) Identify(playerName, token string) error {
	return c.enqueue(wsapi.ActionIdentify, wsapi.IdentifyPayload{PlayerName: playerName, Token: token})
}

// ListGames requests the current lobby listing.
func (c *Client) ListGames() error {
	return c.enqueue(wsapi.ActionListGames, struct{}{})
}

// JoinGame seats the identified player at gameID.
func (c *Client) JoinGame(gameID string) error {
	return c.enqueue(wsapi.ActionJoinGame, wsapi.JoinGamePayload{GameID: gameID})
}

// Ready flags the seated player as ready to start the next hand.
func (c *Client) Ready() error {
	return c.enqueue(wsapi.ActionReady, struct{}{})
}

// Action submits a betting decision for the hand in progress. handNumber
// must match the server's current hand so a stale action from a hand that
// has already ended is rejected instead of silently applied to whatever
// hand is in progress when it arrives.
func (c *Client) Action(handNumber int, actionType validator.ActionType, amount int) error {
	return c.enqueue(wsapi.ActionPlayerAction, wsapi.PlayerActionPayload{HandNumber: handNumber, Type: actionType, Amount: amount})
}

// Reveal voluntarily shows the player's hole cards for the rest of the hand.
func (c *Client) Reveal() error {
	return c.enqueue(wsapi.ActionRevealCards, wsapi.RevealCardsPayload{})
}

// Chat sends a table-talk message.
func (c *Client) Chat(message string) error {
	return c.enqueue(wsapi.ActionChat, wsapi.ChatPayload{Message: message})
}

// LeaveGame gives up the player's seat.
func (c *Client) LeaveGame() error {
	return c.enqueue(wsapi.ActionLeaveGame, struct{}{})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Debug().Err(err).Msg("write pump closing on socket error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() { _ = c.Close() }()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read pump closing on socket error")
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	c.mu.RLock()
	handlers := append([]Handler(nil), c.handlers[env.Type]...)
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug().Str("type", env.Type).Msg("no handler registered")
		return
	}
	for _, h := range handlers {
		h(env.Payload)
	}
}
