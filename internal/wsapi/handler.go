package wsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/activegame"
	"github.com/lox/pokerforbots-server/internal/engine"
	"github.com/lox/pokerforbots-server/internal/gamemanager"
	"github.com/lox/pokerforbots-server/internal/replay"
	"github.com/lox/pokerforbots-server/internal/session"
	"github.com/lox/pokerforbots-server/internal/validator"
)

// Handler decodes every inbound envelope and routes it to the room, session,
// or replay plumbing it names. One Handler is shared by every connected
// socket; per-socket state (identity, current room, replay cursor) lives on
// the session.Session and in Handler's replay-instance table.
type Handler struct {
	sessions *session.Manager
	games    *gamemanager.Manager
	logger   zerolog.Logger

	mu        sync.Mutex
	instances map[string]*replay.Instance // keyed by playerID
}

// New builds a dispatcher bound to the given session and game registries.
func New(sessions *session.Manager, games *gamemanager.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		games:     games,
		logger:    logger.With().Str("component", "wsapi").Logger(),
		instances: make(map[string]*replay.Instance),
	}
}

// Dispatch is the Session.Dispatch callback: it decodes env.Payload per
// env.Action and calls the matching handler.
func (h *Handler) Dispatch(sess *session.Session, env session.Envelope) {
	switch env.Action {
	case ActionIdentify:
		h.handleIdentify(sess, env.Payload)
	case ActionListGames:
		h.handleListGames(sess)
	case ActionJoinGame:
		h.handleJoinGame(sess, env.Payload)
	case ActionReady:
		h.handleReady(sess)
	case ActionPlayerAction:
		h.handlePlayerAction(sess, env.Payload)
	case ActionRevealCards:
		h.handleRevealCards(sess)
	case ActionChat:
		h.handleChat(sess, env.Payload)
	case ActionLeaveGame:
		h.handleLeaveGame(sess)
	case ActionReplayControl:
		h.handleReplayControl(sess, env.Payload)
	case ActionReplayCardVisibility:
		h.handleReplayCardVisibility(sess, env.Payload)
	default:
		h.sendError(sess, ErrInvalidMessage, fmt.Sprintf("unknown action %q", env.Action))
	}
}

// errorCodeForAction maps a rejected room.Action error onto the specific
// wire error code a client can act on, unwrapping the engine/validator/room
// sentinel it was built from.
func errorCodeForAction(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return ErrOutOfTurn
	case errors.Is(err, validator.ErrAmountOutOfRange):
		return ErrInvalidAmount
	case errors.Is(err, validator.ErrIllegalAction):
		return ErrInvalidAction
	default:
		return ErrInvalidAction
	}
}

func (h *Handler) sendError(sess *session.Session, code, message string) {
	_ = sess.Send(TypeError, ErrorPayload{Code: code, Message: message})
}

func (h *Handler) decode(sess *session.Session, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		h.sendError(sess, ErrInvalidMessage, "failed to parse payload: "+err.Error())
		return false
	}
	return true
}

// requireIdentified returns the session's player id, sending an error and
// false if the socket hasn't completed identify yet.
func (h *Handler) requireIdentified(sess *session.Session) (string, bool) {
	playerID := sess.PlayerID()
	if playerID == "" {
		h.sendError(sess, ErrNotIdentified, "send identify before any other action")
		return "", false
	}
	return playerID, true
}

func (h *Handler) handleIdentify(sess *session.Session, raw json.RawMessage) {
	var payload IdentifyPayload
	if !h.decode(sess, raw, &payload) {
		return
	}

	playerID := ""
	if payload.Token != "" {
		if resolved, ok := h.sessions.Resolve(payload.Token); ok {
			playerID = resolved
		}
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	sess.SetPlayerID(playerID)
	if payload.PlayerName != "" {
		sess.SetDisplayName(payload.PlayerName)
	}

	token := h.sessions.Register(playerID, sess)

	if gameID := sess.GameID(); gameID != "" {
		if room, ok := h.games.GetRoom(gameID); ok {
			_ = room.SetConnected(playerID, true)
		}
	}

	_ = sess.Send(TypeIdentified, IdentifiedPayload{PlayerID: playerID, Token: token})
}

func (h *Handler) handleListGames(sess *session.Session) {
	_ = sess.Send(TypeGameList, h.games.ListRooms())
}

func (h *Handler) handleJoinGame(sess *session.Session, raw json.RawMessage) {
	playerID, ok := h.requireIdentified(sess)
	if !ok {
		return
	}
	var payload JoinGamePayload
	if !h.decode(sess, raw, &payload) {
		return
	}

	room, ok := h.games.GetRoom(payload.GameID)
	if !ok {
		h.sendError(sess, ErrGameNotFound, fmt.Sprintf("no such game %q", payload.GameID))
		return
	}

	if err := room.Join(playerID, sess.DisplayName()); err != nil {
		if errors.Is(err, activegame.ErrAlreadySeated) {
			h.sendError(sess, ErrAlreadyInGame, err.Error())
		} else {
			h.sendError(sess, ErrInvalidAction, err.Error())
		}
		return
	}

	sess.SetGameID(payload.GameID)
	gameState, handEvents := room.JoinSnapshot(playerID)
	_ = sess.Send(TypeGameJoined, GameJoinedPayload{GameState: gameState, HandEvents: handEvents})
}

func (h *Handler) handleReady(sess *session.Session) {
	playerID, room, ok := h.requirePlayerInRoom(sess)
	if !ok {
		return
	}
	if err := room.Ready(playerID); err != nil {
		h.sendError(sess, ErrInvalidAction, err.Error())
	}
}

func (h *Handler) handlePlayerAction(sess *session.Session, raw json.RawMessage) {
	playerID, room, ok := h.requirePlayerInRoom(sess)
	if !ok {
		return
	}
	var payload PlayerActionPayload
	if !h.decode(sess, raw, &payload) {
		return
	}
	if err := room.Action(playerID, payload.HandNumber, payload.Type, payload.Amount); err != nil {
		h.sendError(sess, errorCodeForAction(err), err.Error())
	}
}

func (h *Handler) handleRevealCards(sess *session.Session) {
	playerID, room, ok := h.requirePlayerInRoom(sess)
	if !ok {
		return
	}
	if err := room.Reveal(playerID); err != nil {
		h.sendError(sess, ErrInvalidAction, err.Error())
	}
}

func (h *Handler) handleChat(sess *session.Session, raw json.RawMessage) {
	playerID, room, ok := h.requirePlayerInRoom(sess)
	if !ok {
		return
	}
	var payload ChatPayload
	if !h.decode(sess, raw, &payload) {
		return
	}

	if err := room.Chat(playerID, payload.Message); err != nil {
		h.sendError(sess, ErrInvalidAction, err.Error())
	}
}

func (h *Handler) handleLeaveGame(sess *session.Session) {
	playerID, room, ok := h.requirePlayerInRoom(sess)
	if !ok {
		return
	}
	if err := room.Leave(playerID); err != nil {
		h.sendError(sess, ErrInvalidAction, err.Error())
		return
	}
	sess.SetGameID("")
}

func (h *Handler) handleReplayControl(sess *session.Session, raw json.RawMessage) {
	var payload ReplayControlPayload
	if !h.decode(sess, raw, &payload) {
		return
	}

	inst := h.instanceFor(sess.PlayerID())
	if inst == nil {
		h.sendError(sess, ErrInvalidAction, "no replay loaded for this session")
		return
	}

	switch payload.Command {
	case "play":
		inst.Play()
	case "pause":
		inst.Pause()
	case "step":
		inst.Step()
	case "setPosition":
		if payload.Position == nil {
			h.sendError(sess, ErrInvalidMessage, "setPosition requires position")
			return
		}
		if err := inst.SetPosition(*payload.Position); err != nil {
			h.sendError(sess, ErrInvalidAction, err.Error())
			return
		}
	case "jumpRoundStart":
		inst.JumpRoundStart()
	case "jumpNextRound":
		inst.JumpNextRound()
	case "setSpeed":
		if payload.Speed == nil {
			h.sendError(sess, ErrInvalidMessage, "setSpeed requires speed")
			return
		}
		if err := inst.SetSpeed(*payload.Speed); err != nil {
			h.sendError(sess, ErrInvalidAction, err.Error())
			return
		}
	default:
		h.sendError(sess, ErrInvalidMessage, fmt.Sprintf("unknown replay command %q", payload.Command))
		return
	}

	state, err := inst.State(sess.PlayerID())
	if err != nil {
		h.sendError(sess, ErrInvalidAction, err.Error())
		return
	}
	_ = sess.Send(TypeReplayState, state)
}

func (h *Handler) handleReplayCardVisibility(sess *session.Session, raw json.RawMessage) {
	var payload ReplayCardVisibilityPayload
	if !h.decode(sess, raw, &payload) {
		return
	}
	inst := h.instanceFor(sess.PlayerID())
	if inst == nil {
		h.sendError(sess, ErrInvalidAction, "no replay loaded for this session")
		return
	}
	inst.SetCardVisibility(payload.PlayerIDs, payload.Reveal)

	state, err := inst.State(sess.PlayerID())
	if err != nil {
		h.sendError(sess, ErrInvalidAction, err.Error())
		return
	}
	_ = sess.Send(TypeReplayState, state)
}

// LoadReplay attaches a replay file as playerID's active replay instance,
// e.g. once a gamemanager-recorded game has ended and a viewer requests its
// history.
func (h *Handler) LoadReplay(playerID string, file replay.File) *replay.Instance {
	inst := replay.NewInstance(file)
	h.mu.Lock()
	h.instances[playerID] = inst
	h.mu.Unlock()
	return inst
}

func (h *Handler) instanceFor(playerID string) *replay.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instances[playerID]
}

func (h *Handler) requirePlayerInRoom(sess *session.Session) (string, *activegame.Room, bool) {
	playerID, ok := h.requireIdentified(sess)
	if !ok {
		return "", nil, false
	}
	gameID := sess.GameID()
	if gameID == "" {
		h.sendError(sess, ErrNotInGame, "join a game before sending this action")
		return "", nil, false
	}
	room, ok := h.games.GetRoom(gameID)
	if !ok {
		h.sendError(sess, ErrGameNotFound, "the joined game no longer exists")
		return "", nil, false
	}
	return playerID, room, true
}
