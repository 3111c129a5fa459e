package engine

import (
	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/pot"
)

// clone deep-copies s so that callers who retain a reference (the replay
// recorder keeps one per event, indefinitely) never observe a later
// mutation. Every slice and map field the engine mutates in place is copied.
func clone(s State) State {
	out := s

	out.Deck = s.Deck.Clone()

	out.CommunityCards = append([]deck.Card(nil), s.CommunityCards...)

	out.Pots = append([]pot.Breakdown(nil), s.Pots...)
	for i := range out.Pots {
		out.Pots[i].Eligible = append([]string(nil), s.Pots[i].Eligible...)
	}

	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p
		out.Players[i].HoleCards = append([]deck.Card(nil), p.HoleCards...)
	}

	out.ActedThisRound = make(map[string]bool, len(s.ActedThisRound))
	for k, v := range s.ActedThisRound {
		out.ActedThisRound[k] = v
	}

	out.VoluntaryReveals = make(map[string]bool, len(s.VoluntaryReveals))
	for k, v := range s.VoluntaryReveals {
		out.VoluntaryReveals[k] = v
	}

	out.HandEvents = append([]Event(nil), s.HandEvents...)

	return out
}

// playerIndex returns the index of the player with the given id, or -1.
func (s *State) playerIndex(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// emit appends event to the working state's hand event history, clones the
// state, and records the (event, state-as-of-event) transition.
func emit(s *State, event Event, transitions *[]Transition) {
	s.HandEvents = append(s.HandEvents, event)
	*transitions = append(*transitions, Transition{State: clone(*s), Event: event})
}
