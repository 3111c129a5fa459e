// Package activegame wraps the pure internal/engine state machine with the
// orchestration a live room needs: a single goroutine serializes every
// inbound command, drives the action clock, records replay entries, and
// broadcasts the resulting per-viewer projections. Nothing in internal/engine
// knows a goroutine or a timer exists; everything here does.
package activegame

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/engine"
	"github.com/lox/pokerforbots-server/internal/replay"
	"github.com/lox/pokerforbots-server/internal/validator"
)

// Sentinel errors a Room's command handlers wrap their return value with, so
// wsapi can map a rejected command onto a specific wire error code without
// parsing message text.
var (
	ErrAlreadySeated    = errors.New("activegame: player is already seated")
	ErrUnknownPlayer    = errors.New("activegame: unknown player")
	ErrStaleHandNumber  = errors.New("activegame: action references a hand that is no longer current")
)

// warningThresholds lists the remaining-time checkpoints, measured back from
// the action clock's expiry, at which the active player receives a
// timeWarning. Both must be smaller than Config.ActionTimeout to fire.
var warningThresholds = []time.Duration{10 * time.Second, 5 * time.Second}

// Config holds the per-room settings a Room needs beyond what's in
// engine.State: timing and minimum-player gates the engine itself has no
// opinion about.
type Config struct {
	SmallBlind          int
	BigBlind            int
	MaxPlayers          int
	StartingStack       int
	ActionTimeout       time.Duration
	HandDelay           time.Duration
	MinReadyPlayers     int
	SpectatorVisibility engine.SpectatorVisibility
}

// Publisher delivers a message to one connected viewer; internal/session
// implements this. activegame never needs to know anything about sockets.
type Publisher interface {
	Publish(playerID string, message any)
}

// command is the sealed set of inputs a Room's single goroutine consumes,
// one at a time, off its inbound channel.
type command struct {
	kind      commandKind
	playerID  string
	action    validator.ActionType
	amount    int
	handNumber int

	displayName string
	message     string

	reply    chan error
	snapshot chan joinSnapshot
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdReady
	cmdLeave
	cmdAction
	cmdTimeout
	cmdStartHand
	cmdSetConnected
	cmdChat
	cmdReveal
	cmdJoinSnapshot
)

// joinSnapshot is the result of a cmdJoinSnapshot query: a joining viewer's
// own per-viewer projection plus the events emitted so far in the
// in-progress hand, so a mid-hand spectator can catch up on arrival.
type joinSnapshot struct {
	gameState  engine.ClientGameState
	handEvents []engine.Event
}

// ChatMessage is one table-talk message broadcast to every viewer of a room.
type ChatMessage struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
}

// GameStateMessage pairs a per-viewer projected state with the event that
// produced it, one message per emitted transition. Event is nil for a
// broadcast that isn't driven by a discrete event (leave, ready,
// connection-status changes) so it's omitted from the wire payload
// rather than marshaled as an empty object.
type GameStateMessage struct {
	GameState     engine.ClientGameState `json:"gameState"`
	Event         *engine.Event          `json:"event,omitempty"`
	ActionRequest *engine.ActionRequest  `json:"actionRequest,omitempty"`
}

// TimeWarning tells the active player their action clock is about to expire.
type TimeWarning struct {
	GameID      string `json:"gameId"`
	RemainingMs int    `json:"remainingMs"`
}

// Standing is one player's final chip count, ranked within GameOver.
type Standing struct {
	PlayerID string `json:"playerId"`
	Stack    int    `json:"stack"`
}

// GameOver is broadcast once a room can no longer continue: fewer than two
// players hold chips to play another hand.
type GameOver struct {
	GameID    string     `json:"gameId"`
	Reason    string     `json:"reason"`
	Standings []Standing `json:"standings"`
}

// Room is one table's live executor: exactly one goroutine (Run) ever
// touches state, recorder, or timers, so none of them need their own locks.
type Room struct {
	id     string
	config Config
	clock  quartz.Clock
	logger zerolog.Logger
	pub    Publisher

	recorder *replay.Recorder

	state     engine.State
	inbound   chan command
	timers    []*quartz.Timer
	completed bool

	snapshotMu sync.RWMutex
	snapshot   RoomSnapshot
}

// RoomSnapshot is a lock-light, eventually-consistent view of a room's
// current state, safe to read from any goroutine without routing through
// the room's single-threaded command queue. gamemanager's lobby listing
// reads this instead of submitting a command per room per listGames call.
type RoomSnapshot struct {
	ID             string
	SmallBlind     int
	BigBlind       int
	MaxPlayers     int
	PlayerCount    int
	HandInProgress bool
}

// New constructs a room in its pre-first-hand state: seats reserved but no
// hand in progress. Players join with Join and signal readiness with Ready;
// the room starts its first hand once enough players are ready.
func New(id string, config Config, clock quartz.Clock, logger zerolog.Logger, pub Publisher) *Room {
	if clock == nil {
		clock = quartz.NewReal()
	}
	room := &Room{
		id:     id,
		config: config,
		clock:  clock,
		logger: logger.With().Str("room_id", id).Logger(),
		pub:    pub,
		recorder: replay.NewRecorder(id, replay.GameConfig{
			SmallBlind:    config.SmallBlind,
			BigBlind:      config.BigBlind,
			StartingStack: config.StartingStack,
		}, clock),
		state: engine.State{
			GameID:           id,
			DealerSeatIndex:  -1,
			SmallBlindAmount: config.SmallBlind,
			BigBlindAmount:   config.BigBlind,
			MaxPlayers:       config.MaxPlayers,
			StartingStack:    config.StartingStack,
			ActedThisRound:   map[string]bool{},
		},
		inbound: make(chan command, 64),
	}
	room.snapshot = RoomSnapshot{ID: id, SmallBlind: config.SmallBlind, BigBlind: config.BigBlind, MaxPlayers: config.MaxPlayers}
	return room
}

// Run processes inbound commands until ctx is canceled. Call it in its own
// goroutine; it is the only goroutine allowed to mutate Room state.
func (r *Room) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.stopTimer()
			return
		case cmd := <-r.inbound:
			r.handle(cmd)
		}
	}
}

func (r *Room) handle(cmd command) {
	var err error
	switch cmd.kind {
	case cmdJoin:
		err = r.handleJoin(cmd)
	case cmdReady:
		err = r.handleReady(cmd)
	case cmdLeave:
		err = r.handleLeave(cmd)
	case cmdSetConnected:
		err = r.handleSetConnected(cmd)
	case cmdAction:
		err = r.handleAction(cmd)
	case cmdTimeout:
		err = r.handleTimeout(cmd)
	case cmdStartHand:
		err = r.handleStartHand()
	case cmdChat:
		err = r.handleChat(cmd)
	case cmdReveal:
		err = r.handleReveal(cmd)
	case cmdJoinSnapshot:
		r.handleJoinSnapshot(cmd)
		r.updateSnapshot()
		return
	}
	r.updateSnapshot()
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

// updateSnapshot refreshes the externally-readable RoomSnapshot. Called
// after every handled command, whether or not it changed anything; cheap
// enough that it isn't worth conditioning on which command ran.
func (r *Room) updateSnapshot() {
	r.snapshotMu.Lock()
	defer r.snapshotMu.Unlock()
	r.snapshot = RoomSnapshot{
		ID:             r.id,
		SmallBlind:     r.config.SmallBlind,
		BigBlind:       r.config.BigBlind,
		MaxPlayers:     r.config.MaxPlayers,
		PlayerCount:    seatCount(r.state.Players, engine.RolePlayer),
		HandInProgress: r.state.HandInProgress,
	}
}

// Snapshot returns the most recently published RoomSnapshot. Safe to call
// from any goroutine.
func (r *Room) Snapshot() RoomSnapshot {
	r.snapshotMu.RLock()
	defer r.snapshotMu.RUnlock()
	return r.snapshot
}

// Recorder exposes the room's replay recorder so a caller can snapshot the
// game's history (e.g. once the room is torn down). replay.Recorder guards
// its own state, so this is safe to call from any goroutine.
func (r *Room) Recorder() *replay.Recorder {
	return r.recorder
}

// submit enqueues cmd and blocks for its result; it is how every exported
// method below talks to the room's single goroutine.
func (r *Room) submit(cmd command) error {
	cmd.reply = make(chan error, 1)
	r.inbound <- cmd
	return <-cmd.reply
}

// Join seats a new player (or spectator, once MaxPlayers is full) at the
// lowest free seat index.
func (r *Room) Join(playerID, displayName string) error {
	return r.submit(command{kind: cmdJoin, playerID: playerID, displayName: displayName})
}

// Ready marks a seated player ready to begin; once enough players are ready
// the room starts its first hand automatically.
func (r *Room) Ready(playerID string) error {
	return r.submit(command{kind: cmdReady, playerID: playerID})
}

// Leave removes playerID from their seat, folding them out of any hand in
// progress.
func (r *Room) Leave(playerID string) error {
	return r.submit(command{kind: cmdLeave, playerID: playerID})
}

// SetConnected updates a seat's connection flag, used by the session layer
// on socket connect/disconnect without removing the seat outright.
func (r *Room) SetConnected(playerID string, connected bool) error {
	kind := cmdSetConnected
	amount := 0
	if connected {
		amount = 1
	}
	return r.submit(command{kind: kind, playerID: playerID, amount: amount})
}

// Action submits a player's action for the hand in progress. handNumber must
// match the room's current hand, rejecting a stale action submitted for a
// hand that has already ended.
func (r *Room) Action(playerID string, handNumber int, actionType validator.ActionType, amount int) error {
	return r.submit(command{kind: cmdAction, playerID: playerID, handNumber: handNumber, action: actionType, amount: amount})
}

// Chat records and broadcasts a table-talk message to every viewer of the
// room, interleaved into the replay timeline alongside hand events.
func (r *Room) Chat(playerID, message string) error {
	return r.submit(command{kind: cmdChat, playerID: playerID, message: message})
}

// Reveal voluntarily shows playerID's hole cards to every viewer for the
// remainder of the hand, e.g. a player showing a bluff after winning
// uncontested.
func (r *Room) Reveal(playerID string) error {
	return r.submit(command{kind: cmdReveal, playerID: playerID})
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// JoinSnapshot returns viewerID's current per-viewer projected state plus
// the events emitted so far in the hand in progress (empty if none), so a
// spectator joining mid-hand can catch up on arrival.
func (r *Room) JoinSnapshot(viewerID string) (engine.ClientGameState, []engine.Event) {
	cmd := command{kind: cmdJoinSnapshot, playerID: viewerID, snapshot: make(chan joinSnapshot, 1)}
	r.inbound <- cmd
	snap := <-cmd.snapshot
	return snap.gameState, snap.handEvents
}

func (r *Room) handleJoinSnapshot(cmd command) {
	reveal := showdownReveal(r.state, r.config.SpectatorVisibility)
	cmd.snapshot <- joinSnapshot{
		gameState:  engine.ToClientGameState(r.state, cmd.playerID, reveal),
		handEvents: append([]engine.Event(nil), r.state.HandEvents...),
	}
}

func (r *Room) handleJoin(cmd command) error {
	for _, p := range r.state.Players {
		if p.ID == cmd.playerID {
			return fmt.Errorf("%w: %q", ErrAlreadySeated, cmd.playerID)
		}
	}

	role := engine.RolePlayer
	seatIndex := len(r.state.Players)
	if seatCount(r.state.Players, engine.RolePlayer) >= r.config.MaxPlayers {
		role = engine.RoleSpectator
	}

	r.state.Players = append(r.state.Players, engine.Player{
		ID:          cmd.playerID,
		DisplayName: cmd.displayName,
		SeatIndex:   seatIndex,
		Role:        role,
		Stack:       r.config.StartingStack,
		Connected:   true,
	})

	r.recorder.NoteSeated(cmd.playerID, cmd.displayName, seatIndex)
	r.broadcastJoined(cmd.playerID, cmd.displayName, seatIndex, role)
	return nil
}

func (r *Room) handleReady(cmd command) error {
	idx := r.playerIndex(cmd.playerID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.playerID)
	}
	r.state.Players[idx].IsReady = true
	r.broadcastState()

	if !r.state.HandInProgress && readyCount(r.state.Players) >= r.config.MinReadyPlayers {
		return r.handleStartHand()
	}
	return nil
}

func (r *Room) handleLeave(cmd command) error {
	idx := r.playerIndex(cmd.playerID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.playerID)
	}

	if r.state.HandInProgress && r.state.Players[idx].Role == engine.RolePlayer {
		if r.state.ActivePlayerID == cmd.playerID {
			transitions, err := engine.ProcessAction(r.state, cmd.playerID, validator.Fold, 0)
			if err == nil {
				r.applyTransitions(transitions)
			}
		} else {
			r.state.Players[idx].Folded = true
		}
	}

	r.state.Players = append(r.state.Players[:idx], r.state.Players[idx+1:]...)
	for i := range r.state.Players {
		r.state.Players[i].SeatIndex = i
	}
	r.broadcastState()
	return nil
}

func (r *Room) handleSetConnected(cmd command) error {
	idx := r.playerIndex(cmd.playerID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.playerID)
	}
	r.state.Players[idx].Connected = cmd.amount == 1
	r.broadcastState()
	return nil
}

func (r *Room) handleChat(cmd command) error {
	if r.playerIndex(cmd.playerID) < 0 {
		return fmt.Errorf("activegame: %q is not seated in this room", cmd.playerID)
	}
	r.recorder.RecordChat(cmd.playerID, cmd.message)
	for _, viewer := range r.state.Players {
		r.pub.Publish(viewer.ID, ChatMessage{GameID: r.id, PlayerID: cmd.playerID, Message: cmd.message})
	}
	return nil
}

func (r *Room) handleReveal(cmd command) error {
	transitions, err := engine.RevealHoleCards(r.state, cmd.playerID)
	if err != nil {
		return err
	}
	r.applyTransitions(transitions)
	return nil
}

func (r *Room) handleStartHand() error {
	if r.completed {
		return nil
	}
	if fundedPlayerCount(r.state.Players) < 2 {
		r.completeGame("insufficient_stacks")
		return nil
	}
	if readyCount(r.state.Players) < r.config.MinReadyPlayers {
		return nil
	}
	transitions, err := engine.StartHand(r.state, nil)
	if err != nil {
		return err
	}
	r.applyTransitions(transitions)
	return nil
}

func (r *Room) handleAction(cmd command) error {
	if cmd.handNumber != r.state.HandNumber {
		return fmt.Errorf("%w: got %d, current is %d", ErrStaleHandNumber, cmd.handNumber, r.state.HandNumber)
	}
	r.stopTimer()
	transitions, err := engine.ProcessAction(r.state, cmd.playerID, cmd.action, cmd.amount)
	if err != nil {
		r.armTimer()
		return err
	}
	r.applyTransitions(transitions)
	return nil
}

func (r *Room) handleTimeout(cmd command) error {
	if r.state.ActivePlayerID != cmd.playerID {
		// A human action raced the timer and won; nothing to do.
		return nil
	}
	transitions, err := engine.ProcessTimeout(r.state, cmd.playerID)
	if err != nil {
		return err
	}
	r.applyTransitions(transitions)
	return nil
}

// applyTransitions records the whole batch, then adopts and broadcasts each
// transition in turn: every FLOP/TURN/RIVER/PLAYER_ACTION/SHOWDOWN/HAND_END
// event reaches clients paired with the state as of that event, never
// collapsed to the batch's final state. Once every transition has been
// broadcast, it arms whatever comes next: the action timer for the new
// active player, or a delayed start of the next hand once one has ended.
func (r *Room) applyTransitions(transitions []engine.Transition) {
	if len(transitions) == 0 {
		return
	}
	r.recorder.Record(transitions)
	for _, t := range transitions {
		r.state = t.State
		r.broadcastTransition(t)
	}

	if !r.state.HandInProgress {
		r.scheduleNextHand()
		return
	}
	r.armTimer()
}

// scheduleNextHand waits handDelayMs before attempting to rotate into the
// next hand, giving clients time to animate the last one's result.
func (r *Room) scheduleNextHand() {
	r.clock.AfterFunc(r.config.HandDelay, func() {
		_ = r.submit(command{kind: cmdStartHand})
	})
}

// completeGame transitions the room out of play and broadcasts gameOver with
// final standings. Called once fewer than two players hold chips to start
// another hand.
func (r *Room) completeGame(reason string) {
	r.completed = true
	standings := standingsFor(r.state.Players)
	for _, viewer := range r.state.Players {
		r.pub.Publish(viewer.ID, GameOver{GameID: r.id, Reason: reason, Standings: standings})
	}
}

func fundedPlayerCount(players []engine.Player) int {
	n := 0
	for _, p := range players {
		if p.Role == engine.RolePlayer && p.Stack > 0 {
			n++
		}
	}
	return n
}

// standingsFor ranks every seated player by final stack, descending.
func standingsFor(players []engine.Player) []Standing {
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		if p.Role != engine.RolePlayer {
			continue
		}
		out = append(out, Standing{PlayerID: p.ID, Stack: p.Stack})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stack > out[j].Stack })
	return out
}

// armTimer arms the action-expiry timer for the active player, plus a
// timeWarning timer at each of warningThresholds' remaining-time
// checkpoints that fall within the action timeout.
func (r *Room) armTimer() {
	r.stopTimer()
	if r.state.ActivePlayerID == "" {
		return
	}
	playerID := r.state.ActivePlayerID
	gameID := r.id

	for _, remaining := range warningThresholds {
		if remaining >= r.config.ActionTimeout {
			continue
		}
		fireAt := r.config.ActionTimeout - remaining
		remainingMs := int(remaining / time.Millisecond)
		r.timers = append(r.timers, r.clock.AfterFunc(fireAt, func() {
			r.pub.Publish(playerID, TimeWarning{GameID: gameID, RemainingMs: remainingMs})
		}))
	}

	r.timers = append(r.timers, r.clock.AfterFunc(r.config.ActionTimeout, func() {
		r.inbound <- command{kind: cmdTimeout, playerID: playerID, reply: make(chan error, 1)}
	}))
}

// stopTimer cancels the expiry timer and every pending timeWarning timer
// armed alongside it.
func (r *Room) stopTimer() {
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
}

func (r *Room) playerIndex(playerID string) int {
	for i, p := range r.state.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func seatCount(players []engine.Player, role engine.Role) int {
	n := 0
	for _, p := range players {
		if p.Role == role {
			n++
		}
	}
	return n
}

func readyCount(players []engine.Player) int {
	n := 0
	for _, p := range players {
		if p.Role == engine.RolePlayer && p.IsReady {
			n++
		}
	}
	return n
}

// broadcastState pushes a fresh per-viewer projection to every connected
// seat, with no discrete event attached (leave/ready/connection-status
// changes; joins go through broadcastJoined). The active player's projection additionally carries
// actionRequest.
func (r *Room) broadcastState() {
	reveal := showdownReveal(r.state, r.config.SpectatorVisibility)
	for _, viewer := range r.state.Players {
		cgs := engine.ToClientGameState(r.state, viewer.ID, reveal)
		r.pub.Publish(viewer.ID, GameStateMessage{GameState: cgs, ActionRequest: cgs.ActionRequest})
	}
}

// broadcastTransition sends one gameState message per viewer for a single
// transition, pairing its event with the per-viewer projection of its own
// state — never a state from before or after it.
func (r *Room) broadcastTransition(t engine.Transition) {
	reveal := showdownReveal(t.State, r.config.SpectatorVisibility)
	event := t.Event
	for _, viewer := range t.State.Players {
		cgs := engine.ToClientGameState(t.State, viewer.ID, reveal)
		r.pub.Publish(viewer.ID, GameStateMessage{GameState: cgs, Event: &event, ActionRequest: cgs.ActionRequest})
	}
}

// showdownReveal decides which hole cards a spectator-visibility policy
// makes visible to everyone regardless of viewer identity. Player viewers
// always see their own cards via ToClientGameState itself; this only
// affects what spectators (and other players) see of each other.
func showdownReveal(s engine.State, visibility engine.SpectatorVisibility) map[string]bool {
	switch visibility {
	case engine.VisibilityImmediate:
		return map[string]bool{engine.RevealAll: true}
	case engine.VisibilityShowdown, engine.VisibilityDelayed:
		// delayed mirrors showdown for the hole-card projection; the mode
		// only changes how the client paces reveal animations.
		if s.Stage == engine.Showdown || !s.HandInProgress {
			return map[string]bool{engine.RevealAll: true}
		}
	}
	return nil
}

// broadcastJoined sends every current viewer a PLAYER_JOINED gameState
// message paired with their own current projection. actionRequest is always
// nulled here, even if the recipient happens to be on the clock, since a
// join event carries no action for them to take.
func (r *Room) broadcastJoined(playerID, displayName string, seatIndex int, role engine.Role) {
	reveal := showdownReveal(r.state, r.config.SpectatorVisibility)
	event := engine.Event{
		Type:        engine.EventPlayerJoined,
		PlayerID:    playerID,
		DisplayName: displayName,
		SeatIndex:   seatIndex,
		Role:        string(role),
	}
	for _, viewer := range r.state.Players {
		cgs := engine.ToClientGameState(r.state, viewer.ID, reveal)
		cgs.ActionRequest = nil
		r.pub.Publish(viewer.ID, GameStateMessage{GameState: cgs, Event: &event})
	}
}

// NewID generates a fresh, collision-resistant room id.
func NewID() string {
	return uuid.NewString()
}
