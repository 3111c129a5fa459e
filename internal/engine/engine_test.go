package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/validator"
)

func newState(players int) State {
	ps := make([]Player, players)
	for i := range ps {
		ps[i] = Player{
			ID:        seatID(i),
			SeatIndex: i,
			Role:      RolePlayer,
			Stack:     1000,
			Connected: true,
		}
	}
	return State{
		GameID:           "g1",
		DealerSeatIndex:  -1,
		SmallBlindAmount: 10,
		BigBlindAmount:   20,
		Players:          ps,
		ActedThisRound:   map[string]bool{},
	}
}

func seatID(i int) string {
	return string(rune('A' + i))
}

func lastTransition(t *testing.T, transitions []Transition) Transition {
	t.Helper()
	require.NotEmpty(t, transitions)
	return transitions[len(transitions)-1]
}

func TestStartHandPostsBlindsAndDealsHoleCards(t *testing.T) {
	s := newState(3)

	deckOverride := deck.Create()
	transitions, err := StartHand(s, deckOverride)
	require.NoError(t, err)
	require.NotEmpty(t, transitions)

	final := lastTransition(t, transitions).State
	require.Equal(t, 0, final.DealerSeatIndex)

	// seat0=dealer, seat1=SB, seat2=BB in a 3-handed hand.
	require.Equal(t, 10, final.Players[1].Bet)
	require.Equal(t, 20, final.Players[2].Bet)
	require.Equal(t, 20, final.CurrentBet)

	for _, p := range final.Players {
		require.Len(t, p.HoleCards, 2)
	}

	// Button acts first preflop 3-handed.
	require.Equal(t, final.Players[0].ID, final.ActivePlayerID)
}

func TestStartHandFailsWithFewerThanTwoFundedPlayers(t *testing.T) {
	s := newState(2)
	s.Players[1].Stack = 0

	_, err := StartHand(s, deck.Create())
	require.Error(t, err)
}

func TestFoldToWinnerEndsHandWithoutShowdown(t *testing.T) {
	s := newState(3)
	transitions, err := StartHand(s, deck.Create())
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	// Button (seat 0) folds.
	transitions, err = ProcessAction(s, s.Players[0].ID, validator.Fold, 0)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State
	require.True(t, s.HandInProgress)

	// SB (seat 1) folds, leaving BB the sole survivor.
	transitions, err = ProcessAction(s, s.Players[1].ID, validator.Fold, 0)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	require.False(t, s.HandInProgress)
	require.Equal(t, "", s.ActivePlayerID)
	require.Equal(t, 1010, s.Players[2].Stack) // posted the 20 bb, then scoops the 30-chip pot uncontested
}

func TestHeadsUpHandPlaysToShowdown(t *testing.T) {
	s := newState(2)
	// Stack winner's hole cards with a pair of aces against a pair of kings,
	// rest of the deck arbitrary but distinct.
	fullDeck := deck.MustParseCards(
		"AhAs" + // dealt to the first seat in rotation, i.e. the big blind
			"KhKs" + // dealt to the second seat in rotation, the dealer/small blind
			"2c2d2h" + // flop
			"3c" + // turn
			"3d" + // river
			"4c4d4h5c5d5h6c6d6h7c7d7h8c8d8h9c9d9h" +
			"TcTdThJcJdJhQcQdQh6s7s8s9sTs",
	)

	transitions, err := StartHand(s, fullDeck)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State
	require.True(t, s.HandInProgress)

	// Heads-up preflop: dealer(=SB) acts first. Dealer shoves, other calls.
	sbID := s.ActivePlayerID
	sbStack := s.Players[s.playerIndex(sbID)].Stack
	transitions, err = ProcessAction(s, sbID, validator.AllIn, sbStack)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State
	require.True(t, s.HandInProgress)

	bbID := s.ActivePlayerID
	require.NotEqual(t, sbID, bbID)
	bbPlayer := s.Players[s.playerIndex(bbID)]
	callAmount := s.CurrentBet - bbPlayer.Bet
	transitions, err = ProcessAction(s, bbID, validator.Call, callAmount)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	require.False(t, s.HandInProgress)
	require.Equal(t, Showdown, s.Stage)

	winnerStack := 0
	for _, p := range s.Players {
		if p.ID == bbID {
			winnerStack = p.Stack
		}
	}
	require.Equal(t, 2000, winnerStack, "the big blind's pocket aces should scoop the whole pot")
}

func TestProcessActionRejectsOutOfTurn(t *testing.T) {
	s := newState(3)
	transitions, err := StartHand(s, deck.Create())
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	notActive := s.Players[1].ID
	if s.ActivePlayerID == notActive {
		notActive = s.Players[2].ID
	}
	_, err = ProcessAction(s, notActive, validator.Fold, 0)
	require.Error(t, err)
}

func TestRevealHoleCardsShowsCardsToOtherViewers(t *testing.T) {
	s := newState(3)
	transitions, err := StartHand(s, deck.Create())
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	revealed := s.Players[0].ID
	transitions, err = RevealHoleCards(s, revealed)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	event := lastTransition(t, transitions).Event
	require.Equal(t, EventPlayerRevealed, event.Type)
	require.Equal(t, revealed, event.PlayerID)
	require.NotEmpty(t, event.HoleCards)

	other := s.Players[1].ID
	cgs := ToClientGameState(s, other, nil)
	for _, cp := range cgs.Players {
		if cp.ID == revealed {
			require.NotEmpty(t, cp.HoleCards)
		}
	}
}

func TestRevealHoleCardsRejectsUnseatedPlayer(t *testing.T) {
	s := newState(3)
	transitions, err := StartHand(s, deck.Create())
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	_, err = RevealHoleCards(s, "nobody")
	require.Error(t, err)
}

func TestProcessTimeoutChecksWhenNothingOwed(t *testing.T) {
	s := newState(2)
	transitions, err := StartHand(s, deck.Create())
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	sbID := s.ActivePlayerID
	sbPlayer := s.Players[s.playerIndex(sbID)]
	callAmount := s.CurrentBet - sbPlayer.Bet
	transitions, err = ProcessAction(s, sbID, validator.Call, callAmount)
	require.NoError(t, err)
	s = lastTransition(t, transitions).State

	bbID := s.ActivePlayerID
	transitions, err = ProcessTimeout(s, bbID)
	require.NoError(t, err)

	last := lastTransition(t, transitions)
	require.Equal(t, EventPlayerTimeout, last.Event.Type)
	require.Equal(t, validator.Check, last.Event.DefaultAction.Type)
}
