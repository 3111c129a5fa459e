// Package engine implements the pure Texas Hold'em state machine: every
// exported entry point maps (state, input) to a new state plus the events
// produced along the way. Nothing here touches a socket, a timer, or disk;
// internal/activegame wraps this package with that orchestration.
package engine

import (
	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/pot"
	"github.com/lox/pokerforbots-server/internal/validator"
)

// Stage names a phase within a hand.
type Stage string

const (
	PreFlop  Stage = "PRE_FLOP"
	Flop     Stage = "FLOP"
	Turn     Stage = "TURN"
	River    Stage = "RIVER"
	Showdown Stage = "SHOWDOWN"
)

// Role distinguishes a seated player from a spectator occupying a synthetic
// seat above maxPlayers.
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// GameType distinguishes cash games from the anticipated-but-unimplemented
// tournament mode.
type GameType string

const (
	Cash       GameType = "cash"
	Tournament GameType = "tournament"
)

// SpectatorVisibility controls when a spectator's client is shown other
// players' hole cards.
type SpectatorVisibility string

const (
	VisibilityImmediate SpectatorVisibility = "immediate"
	VisibilityDelayed   SpectatorVisibility = "delayed"
	VisibilityShowdown  SpectatorVisibility = "showdown"
)

// Player is one seat's engine-side state.
type Player struct {
	ID          string
	DisplayName string
	SeatIndex   int
	Role        Role
	Stack       int
	Bet         int
	PotShare    int
	Folded      bool
	HoleCards   []deck.Card
	Connected   bool
	IsAllIn     bool
	IsReady     bool
}

// canAct reports whether the player can still be dealt into betting this
// street: seated as a player, not folded, not all-in.
func (p Player) canAct() bool {
	return p.Role == RolePlayer && !p.Folded && !p.IsAllIn
}

// State is the complete per-room runtime snapshot described in spec.md §3.
type State struct {
	GameID   string
	GameName string
	GameType GameType

	HandNumber    int
	Stage         Stage
	HandInProgress bool

	Deck           deck.Deck
	CommunityCards []deck.Card

	Pot  int
	Pots []pot.Breakdown

	Players         []Player
	DealerSeatIndex int

	CurrentBet     int
	LastRaiseSize  int
	ActedThisRound map[string]bool
	ActivePlayerID string

	SmallBlindAmount int
	BigBlindAmount   int
	MaxPlayers       int
	StartingStack    int

	HandEvents []Event

	// VoluntaryReveals holds the ids of players who chose to show their hole
	// cards via RevealHoleCards. RevealHoleCards accepts a reveal at any
	// point, whether or not the hand is still in progress. Reset at the
	// start of every hand.
	VoluntaryReveals map[string]bool
}

// EventType names one of the wire-protocol event shapes in spec.md §6.
type EventType string

const (
	EventHandStart     EventType = "HAND_START"
	EventBlindsPosted  EventType = "BLINDS_POSTED"
	EventDeal          EventType = "DEAL"
	EventFlop          EventType = "FLOP"
	EventTurn          EventType = "TURN"
	EventRiver         EventType = "RIVER"
	EventPlayerAction  EventType = "PLAYER_ACTION"
	EventPlayerTimeout EventType = "PLAYER_TIMEOUT"
	EventShowdown      EventType = "SHOWDOWN"
	EventHandEnd       EventType = "HAND_END"
	EventPlayerRevealed EventType = "PLAYER_REVEALED"
	EventPlayerJoined  EventType = "PLAYER_JOINED"
	EventPlayerLeft    EventType = "PLAYER_LEFT"
)

// BlindPost is the small/big blind field of a BLINDS_POSTED event.
type BlindPost struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

// ActionPayload describes a submitted or default-applied action.
type ActionPayload struct {
	Type   validator.ActionType `json:"type"`
	Amount int                  `json:"amount,omitempty"`
}

// ShowdownResult is one player's revealed hand at SHOWDOWN.
type ShowdownResult struct {
	PlayerID        string      `json:"playerId"`
	HoleCards       []deck.Card `json:"holeCards"`
	HandRank        int32       `json:"handRank"`
	HandDescription string      `json:"handDescription"`
}

// Event is a single emitted domain event. Only the fields relevant to Type
// are populated; the rest are left at their zero value and omitted on
// marshal.
type Event struct {
	Type EventType `json:"type"`

	HandNumber      int          `json:"handNumber,omitempty"`
	DealerSeatIndex int          `json:"dealerSeatIndex,omitempty"`
	SmallBlind      *BlindPost   `json:"smallBlind,omitempty"`
	BigBlind        *BlindPost   `json:"bigBlind,omitempty"`
	Cards           []deck.Card  `json:"cards,omitempty"`
	Card            *deck.Card   `json:"card,omitempty"`
	PlayerID        string       `json:"playerId,omitempty"`
	Action          *ActionPayload `json:"action,omitempty"`
	DefaultAction   *ActionPayload `json:"defaultAction,omitempty"`
	Results         []ShowdownResult `json:"results,omitempty"`
	Winners         []pot.Winner `json:"winners,omitempty"`
	HoleCards       []deck.Card  `json:"holeCards,omitempty"`
	DisplayName     string       `json:"displayName,omitempty"`
	SeatIndex       int          `json:"seatIndex,omitempty"`
	Role            string       `json:"role,omitempty"`
}

// Transition pairs one emitted event with the state as of that event. The
// replay recorder and the broadcaster both rely on this pairing never
// drifting: never send an event alongside a state from before or after it.
type Transition struct {
	State State
	Event Event
}
