package engine

import (
	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/validator"
)

// ClientPlayer is one seat as projected to a specific viewer: hole cards are
// present only when the viewer is entitled to see them.
type ClientPlayer struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	SeatIndex   int         `json:"seatIndex"`
	Role        Role        `json:"role"`
	Stack       int         `json:"stack"`
	Bet         int         `json:"bet"`
	Folded      bool        `json:"folded"`
	IsAllIn     bool        `json:"isAllIn"`
	Connected   bool        `json:"connected"`
	HoleCards   []deck.Card `json:"holeCards,omitempty"`
}

// ActionRequest is sent only to the player currently on the clock, listing
// the action variants and amount bounds available to them right now.
type ActionRequest struct {
	PlayerID string                   `json:"playerId"`
	Actions  []validator.LegalAction  `json:"actions"`
}

// ClientGameState is the per-viewer projection of State described in
// spec.md §6: every field a client needs to render the table, with hole
// cards redacted to everything the viewer isn't entitled to see.
type ClientGameState struct {
	GameID          string          `json:"gameId"`
	HandNumber      int             `json:"handNumber"`
	Stage           Stage           `json:"stage"`
	CommunityCards  []deck.Card     `json:"communityCards"`
	Pot             int             `json:"pot"`
	Players         []ClientPlayer  `json:"players"`
	DealerSeatIndex int             `json:"dealerSeatIndex"`
	CurrentBet      int             `json:"currentBet"`
	ActivePlayerID  string          `json:"activePlayerId,omitempty"`
	ActionRequest   *ActionRequest  `json:"actionRequest,omitempty"`
}

// RevealAll forces every seated hole card to be visible, used for replay
// viewers once a hand's cards are no longer secret and for the SHOWDOWN
// spectator-visibility mode.
const RevealAll = "*"

// ToClientGameState projects s for viewerID. A player always sees their own
// hole cards; revealHoleCardsFor additionally reveals the listed player ids
// (or every id, if it contains RevealAll) regardless of viewer — used for
// showdown results and replay card-visibility overrides.
func ToClientGameState(s State, viewerID string, revealHoleCardsFor map[string]bool) ClientGameState {
	revealAll := revealHoleCardsFor[RevealAll]

	players := make([]ClientPlayer, len(s.Players))
	for i, p := range s.Players {
		cp := ClientPlayer{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			SeatIndex:   p.SeatIndex,
			Role:        p.Role,
			Stack:       p.Stack,
			Bet:         p.Bet,
			Folded:      p.Folded,
			IsAllIn:     p.IsAllIn,
			Connected:   p.Connected,
		}
		if p.ID == viewerID || revealAll || revealHoleCardsFor[p.ID] || s.VoluntaryReveals[p.ID] {
			cp.HoleCards = p.HoleCards
		}
		players[i] = cp
	}

	pot := 0
	for _, p := range s.Players {
		pot += p.PotShare
	}

	cgs := ClientGameState{
		GameID:          s.GameID,
		HandNumber:      s.HandNumber,
		Stage:           s.Stage,
		CommunityCards:  s.CommunityCards,
		Pot:             pot,
		Players:         players,
		DealerSeatIndex: s.DealerSeatIndex,
		CurrentBet:      s.CurrentBet,
		ActivePlayerID:  s.ActivePlayerID,
	}

	if s.ActivePlayerID == viewerID {
		if idx := s.playerIndex(viewerID); idx >= 0 {
			legal := validator.LegalActions(tableView(s), playerView(s.Players[idx]))
			if len(legal) > 0 {
				cgs.ActionRequest = &ActionRequest{PlayerID: viewerID, Actions: legal}
			}
		}
	}

	return cgs
}
