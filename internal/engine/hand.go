package engine

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"

	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/randutil"
)

// StartHand begins a new hand: it rotates the dealer button, shuffles
// (unless deckOverride is supplied), posts blinds, and deals hole cards.
// It fails if fewer than two seated players currently have a positive
// stack.
func StartHand(s State, deckOverride deck.Deck) ([]Transition, error) {
	working := clone(s)

	seated := seatedWithStack(working.Players)
	if len(seated) < 2 {
		return nil, fmt.Errorf("engine: need at least 2 players with chips to start a hand, have %d", len(seated))
	}

	working.DealerSeatIndex = advanceDealer(working.Players, seated, working.DealerSeatIndex)

	working.CommunityCards = nil
	working.Pots = nil
	working.Pot = 0
	working.HandEvents = nil
	working.VoluntaryReveals = make(map[string]bool)
	working.Stage = PreFlop
	working.HandNumber++
	working.HandInProgress = true

	if deckOverride != nil {
		working.Deck = deckOverride.Clone()
	} else {
		working.Deck = deck.Shuffle(deck.Create(), newRNG())
	}

	for i := range working.Players {
		p := &working.Players[i]
		p.Bet = 0
		p.PotShare = 0
		p.HoleCards = nil
		p.IsAllIn = false
		if p.Role == RolePlayer {
			p.Folded = p.Stack <= 0
		}
	}

	var transitions []Transition
	emit(&working, Event{
		Type:            EventHandStart,
		HandNumber:      working.HandNumber,
		DealerSeatIndex: working.DealerSeatIndex,
	}, &transitions)

	order := rotationFromDealer(working.Players, working.DealerSeatIndex)

	var sbIdx, bbIdx int
	if len(order) == 2 {
		sbIdx, bbIdx = order[1], order[0] // heads-up: dealer is the small blind
	} else {
		sbIdx, bbIdx = order[0], order[1]
	}

	sbPosted := postBlind(&working, sbIdx, working.SmallBlindAmount)
	bbPosted := postBlind(&working, bbIdx, working.BigBlindAmount)
	working.CurrentBet = working.BigBlindAmount
	working.LastRaiseSize = working.BigBlindAmount

	emit(&working, Event{
		Type:       EventBlindsPosted,
		SmallBlind: &BlindPost{PlayerID: working.Players[sbIdx].ID, Amount: sbPosted},
		BigBlind:   &BlindPost{PlayerID: working.Players[bbIdx].ID, Amount: bbPosted},
	}, &transitions)

	dealt, remaining, err := deck.Deal(working.Deck, len(order)*2)
	if err != nil {
		return nil, fmt.Errorf("engine: dealing hole cards: %w", err)
	}
	for i, idx := range order {
		working.Players[idx].HoleCards = []deck.Card{dealt[i*2], dealt[i*2+1]}
	}
	working.Deck = remaining

	emit(&working, Event{Type: EventDeal}, &transitions)

	// settleRound hands the action to the first seat that can act after the
	// big blind: the dealer heads-up, otherwise the seat after the big blind.
	working.ActivePlayerID = working.Players[bbIdx].ID

	settleRound(&working, &transitions)

	return transitions, nil
}

// postBlind moves min(amount, stack) from the player's stack into their
// bet/potShare, marking them all-in if it exhausts their stack, and
// returns the amount actually posted.
func postBlind(s *State, idx int, amount int) int {
	p := &s.Players[idx]
	posted := amount
	if posted > p.Stack {
		posted = p.Stack
		p.IsAllIn = true
	}
	p.Stack -= posted
	p.Bet += posted
	p.PotShare += posted
	return posted
}

// newRNG seeds a shuffle source from crypto/rand. If the OS entropy source
// is unavailable, it falls back to randutil's deterministic PCG seeding
// rather than crash a room over it.
func newRNG() *mathrand.Rand {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return randutil.New(1)
	}
	return mathrand.New(mathrand.NewPCG(
		binary.LittleEndian.Uint64(seed[:]),
		binary.LittleEndian.Uint64(seed[:]),
	))
}
