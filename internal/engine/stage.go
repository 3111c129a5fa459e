package engine

import (
	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/evaluator"
	"github.com/lox/pokerforbots-server/internal/pot"
)

// settleRound is called after every state-changing step during a hand
// (blinds/deal, and each processed action). It decides what happens next:
// end the hand outright if only one player remains, advance to the next
// betting street (or showdown) if the current round is complete, or hand
// off to the next player to act.
func settleRound(s *State, transitions *[]Transition) {
	if idx := soleSurvivor(s.Players); idx >= 0 {
		awardUncontested(s, idx, transitions)
		return
	}

	if !roundComplete(s) {
		s.ActivePlayerID = nextToAct(s.Players, s.activeSeatIndex())
		return
	}

	advanceStage(s, transitions)
}

// roundComplete reports whether every player who can still act has acted
// since the last bet/raise and matched the current bet.
func roundComplete(s *State) bool {
	if canActCount(s.Players) == 0 {
		return true
	}
	for _, p := range s.Players {
		if !p.canAct() {
			continue
		}
		if !s.ActedThisRound[p.ID] {
			return false
		}
		if p.Bet != s.CurrentBet {
			return false
		}
	}
	return true
}

// activeSeatIndex returns the seat index of the currently active player, or
// the dealer's seat if there is none (used only to seed rotation lookups).
func (s *State) activeSeatIndex() int {
	if idx := s.playerIndex(s.ActivePlayerID); idx >= 0 {
		return s.Players[idx].SeatIndex
	}
	return s.DealerSeatIndex
}

// advanceStage moves the hand to the next street, dealing community cards
// and resetting betting state, or runs the showdown once the river is
// complete. If fewer than two players can still act, it fast-forwards
// through the remaining streets without further input (a "runout").
func advanceStage(s *State, transitions *[]Transition) {
	resetBettingRound(s)

	switch s.Stage {
	case PreFlop:
		dealCommunity(s, 3, EventFlop, transitions)
		s.Stage = Flop
	case Flop:
		dealCommunity(s, 1, EventTurn, transitions)
		s.Stage = Turn
	case Turn:
		dealCommunity(s, 1, EventRiver, transitions)
		s.Stage = River
	case River:
		runShowdown(s, transitions)
		return
	}

	if canActCount(s.Players) < 2 {
		advanceStage(s, transitions)
		return
	}

	s.ActivePlayerID = nextToAct(s.Players, s.DealerSeatIndex)
}

// resetBettingRound clears per-street betting state ahead of dealing the
// next community card(s); PotShare (the all-hand, all-street contribution
// used for pot calculation) is left untouched.
func resetBettingRound(s *State) {
	s.CurrentBet = 0
	s.LastRaiseSize = s.BigBlindAmount
	s.ActedThisRound = make(map[string]bool, len(s.Players))
	for i := range s.Players {
		s.Players[i].Bet = 0
	}
}

func dealCommunity(s *State, n int, eventType EventType, transitions *[]Transition) {
	dealt, remaining, err := deck.Deal(s.Deck, n)
	if err != nil {
		// The deck only runs short with more players and rounds than a
		// 52-card deck supports, which validator/room-size limits prevent
		// upstream; treat it as impossible rather than threading an error
		// through every settleRound caller.
		panic(err)
	}
	s.Deck = remaining
	s.CommunityCards = append(s.CommunityCards, dealt...)
	emit(s, Event{Type: eventType, Cards: dealt}, transitions)
}

// awardUncontested ends the hand immediately when every other player has
// folded: the sole survivor wins every pot without a showdown.
func awardUncontested(s *State, winnerIdx int, transitions *[]Transition) {
	pots := pot.Calculate(contributions(s.Players))
	winners := pot.DistributeToSole(pots, s.Players[winnerIdx].ID)
	applyWinners(s, winners)

	emit(s, Event{Type: EventHandEnd, Winners: winners}, transitions)
	s.HandInProgress = false
	s.ActivePlayerID = ""
}

// runShowdown evaluates every non-folded hand, splits each pot among the
// best hand(s) eligible for it, and ends the hand.
func runShowdown(s *State, transitions *[]Transition) {
	s.Stage = Showdown

	ranks := make(map[string]evaluator.Rank)
	var results []ShowdownResult
	seatOrder := make([]string, 0)
	for _, idx := range rotationFromDealer(s.Players, s.DealerSeatIndex) {
		p := s.Players[idx]
		if p.Folded {
			continue
		}
		rank, err := evaluator.Evaluate(p.HoleCards, s.CommunityCards)
		if err != nil {
			panic(err)
		}
		ranks[p.ID] = rank
		seatOrder = append(seatOrder, p.ID)
		results = append(results, ShowdownResult{
			PlayerID:        p.ID,
			HoleCards:       p.HoleCards,
			HandRank:        rank.Value,
			HandDescription: rank.Description,
		})
	}
	emit(s, Event{Type: EventShowdown, Results: results}, transitions)

	pots := pot.Calculate(contributions(s.Players))
	winners := pot.Distribute(pots, ranks, seatOrder)
	applyWinners(s, winners)

	emit(s, Event{Type: EventHandEnd, Winners: winners}, transitions)
	s.HandInProgress = false
	s.ActivePlayerID = ""
}

func contributions(players []Player) []pot.Contribution {
	out := make([]pot.Contribution, 0, len(players))
	for _, p := range players {
		if p.Role != RolePlayer || p.PotShare == 0 {
			continue
		}
		out = append(out, pot.Contribution{PlayerID: p.ID, PotShare: p.PotShare, Folded: p.Folded})
	}
	return out
}

func applyWinners(s *State, winners []pot.Winner) {
	for _, w := range winners {
		if idx := s.playerIndex(w.PlayerID); idx >= 0 {
			s.Players[idx].Stack += w.Amount
		}
	}
}
