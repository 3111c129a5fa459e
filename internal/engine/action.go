package engine

import (
	"errors"
	"fmt"

	"github.com/lox/pokerforbots-server/internal/validator"
)

// ErrNotYourTurn is wrapped into the error ProcessAction/ProcessTimeout
// return when playerID isn't State.ActivePlayerID, so callers can map it to
// the OUT_OF_TURN wire error code without parsing message text.
var ErrNotYourTurn = errors.New("engine: not this player's turn to act")

// ProcessAction validates and applies a single player action, returning the
// transitions produced. It is the only entry point a betting-round input
// goes through; timeouts go through ProcessTimeout instead, which supplies
// its own default action but otherwise shares this same application logic.
func ProcessAction(s State, playerID string, actionType validator.ActionType, amount int) ([]Transition, error) {
	working := clone(s)

	idx := working.playerIndex(playerID)
	if idx < 0 {
		return nil, fmt.Errorf("engine: unknown player %q", playerID)
	}
	if working.ActivePlayerID != playerID {
		return nil, fmt.Errorf("%w: %q", ErrNotYourTurn, playerID)
	}

	if err := validator.Validate(tableView(working), playerView(working.Players[idx]), actionType, amount); err != nil {
		return nil, err
	}

	var transitions []Transition
	applyAction(&working, idx, actionType, amount)
	emit(&working, Event{
		Type:     EventPlayerAction,
		PlayerID: playerID,
		Action:   &ActionPayload{Type: actionType, Amount: amount},
	}, &transitions)

	settleRound(&working, &transitions)
	return transitions, nil
}

// ProcessTimeout applies the default action for a player who failed to act
// within the room's action clock: check if check is legal, otherwise fold.
func ProcessTimeout(s State, playerID string) ([]Transition, error) {
	working := clone(s)

	idx := working.playerIndex(playerID)
	if idx < 0 {
		return nil, fmt.Errorf("engine: unknown player %q", playerID)
	}
	if working.ActivePlayerID != playerID {
		return nil, fmt.Errorf("%w: %q", ErrNotYourTurn, playerID)
	}

	actionType := validator.Fold
	if working.Players[idx].Bet == working.CurrentBet {
		actionType = validator.Check
	}

	var transitions []Transition
	applyAction(&working, idx, actionType, 0)
	emit(&working, Event{
		Type:          EventPlayerTimeout,
		PlayerID:      playerID,
		DefaultAction: &ActionPayload{Type: actionType},
	}, &transitions)

	settleRound(&working, &transitions)
	return transitions, nil
}

// applyAction mutates the working state to reflect a validated action. It
// does not emit events or resolve what happens next; callers do both via
// settleRound after recording the PLAYER_ACTION/PLAYER_TIMEOUT event.
func applyAction(s *State, idx int, actionType validator.ActionType, amount int) {
	p := &s.Players[idx]
	s.ActedThisRound[p.ID] = true

	switch actionType {
	case validator.Fold:
		p.Folded = true

	case validator.Check:
		// no state change beyond having acted

	case validator.Call:
		callAmount := s.CurrentBet - p.Bet
		p.Stack -= callAmount
		p.Bet += callAmount
		p.PotShare += callAmount
		if p.Stack == 0 {
			p.IsAllIn = true
		}

	case validator.Bet:
		p.Stack -= amount
		p.Bet += amount
		p.PotShare += amount
		s.CurrentBet = p.Bet
		s.LastRaiseSize = amount
		reopenAction(s, p.ID)
		if p.Stack == 0 {
			p.IsAllIn = true
		}

	case validator.Raise:
		raiseSize := amount - (s.CurrentBet - p.Bet)
		p.Stack -= amount
		p.Bet += amount
		p.PotShare += amount
		s.CurrentBet = p.Bet
		// A raise that doesn't reach a full min-raise (only possible when
		// it's an all-in, since validator.LegalActions never offers a
		// sub-min-raise RAISE) doesn't reopen the action for players who
		// already acted this round, and doesn't reset LastRaiseSize.
		if raiseSize >= s.LastRaiseSize {
			s.LastRaiseSize = raiseSize
			reopenAction(s, p.ID)
		}
		if p.Stack == 0 {
			p.IsAllIn = true
		}

	case validator.AllIn:
		total := p.Stack
		p.Bet += total
		p.PotShare += total
		p.Stack = 0
		p.IsAllIn = true
		if p.Bet > s.CurrentBet {
			raiseSize := p.Bet - s.CurrentBet
			s.CurrentBet = p.Bet
			if raiseSize >= s.LastRaiseSize {
				s.LastRaiseSize = raiseSize
				reopenAction(s, p.ID)
			}
		}
	}
}

// reopenAction clears ActedThisRound for everyone except playerID, since a
// full bet or raise gives every other live player a fresh chance to act.
func reopenAction(s *State, playerID string) {
	for id := range s.ActedThisRound {
		if id != playerID {
			delete(s.ActedThisRound, id)
		}
	}
}

func tableView(s State) validator.Table {
	return validator.Table{
		CurrentBet:    s.CurrentBet,
		BigBlind:      s.BigBlindAmount,
		LastRaiseSize: s.LastRaiseSize,
	}
}

func playerView(p Player) validator.Player {
	return validator.Player{
		IsActivePlayer: true,
		IsSpectator:    p.Role == RoleSpectator,
		Folded:         p.Folded,
		IsAllIn:        p.IsAllIn,
		Stack:          p.Stack,
		Bet:            p.Bet,
	}
}
