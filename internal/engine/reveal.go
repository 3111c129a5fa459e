package engine

import "fmt"

// RevealHoleCards grants every viewer permanent visibility into playerID's
// hole cards for the remainder of the hand, e.g. a player showing a bluff
// after everyone else folded. It fails if the player isn't seated or hasn't
// been dealt in.
func RevealHoleCards(s State, playerID string) ([]Transition, error) {
	working := clone(s)

	idx := working.playerIndex(playerID)
	if idx < 0 {
		return nil, fmt.Errorf("engine: %q is not seated in this game", playerID)
	}
	p := &working.Players[idx]
	if len(p.HoleCards) == 0 {
		return nil, fmt.Errorf("engine: %q has no hole cards to reveal", playerID)
	}
	if working.VoluntaryReveals == nil {
		working.VoluntaryReveals = make(map[string]bool)
	}
	working.VoluntaryReveals[playerID] = true

	var transitions []Transition
	emit(&working, Event{
		Type:      EventPlayerRevealed,
		PlayerID:  playerID,
		HoleCards: p.HoleCards,
	}, &transitions)

	return transitions, nil
}
