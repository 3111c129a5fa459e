package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/deck"
	"github.com/lox/pokerforbots-server/internal/engine"
	"github.com/lox/pokerforbots-server/internal/validator"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func twoPlayerState() engine.State {
	return engine.State{
		GameID:          "g1",
		DealerSeatIndex: -1,
		SmallBlindAmount: 10,
		BigBlindAmount:   20,
		Players: []engine.Player{
			{ID: "A", SeatIndex: 0, Role: engine.RolePlayer, Stack: 1000, Connected: true},
			{ID: "B", SeatIndex: 1, Role: engine.RolePlayer, Stack: 1000, Connected: true},
		},
		ActedThisRound: map[string]bool{},
	}
}

func TestRecorderAccumulatesEntriesWithIncreasingOffsets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := NewRecorder("g1", GameConfig{SmallBlind: 10, BigBlind: 20, StartingStack: 1000}, clock)
	rec.NoteSeated("A", "Alice", 0)
	rec.NoteSeated("B", "Bob", 1)

	s := twoPlayerState()
	transitions, err := engine.StartHand(s, deck.Create())
	require.NoError(t, err)
	rec.Record(transitions)

	clock.advance(1500 * time.Millisecond)
	s = transitions[len(transitions)-1].State
	callAmount := 0
	for _, p := range s.Players {
		if p.ID == s.ActivePlayerID {
			callAmount = s.CurrentBet - p.Bet
		}
	}
	more, err := engine.ProcessAction(s, s.ActivePlayerID, validator.Call, callAmount)
	require.NoError(t, err)
	rec.Record(more)

	file := rec.Snapshot()
	require.Equal(t, fileVersion, file.Version)
	require.Len(t, file.Players, 2)
	require.Equal(t, "Alice", file.Players[0].DisplayName)
	require.Greater(t, len(file.Entries), len(transitions))

	for i, e := range file.Entries {
		require.Equal(t, i, e.Index)
	}
	require.GreaterOrEqual(t, file.Entries[len(file.Entries)-1].OffsetMillis, int64(1500))
}

func TestInstanceStepAndJumpRoundStart(t *testing.T) {
	s := twoPlayerState()
	transitions, err := engine.StartHand(s, deck.Create())
	require.NoError(t, err)

	rec := NewRecorder("g1", GameConfig{}, nil)
	rec.Record(transitions)
	file := rec.Snapshot()

	inst := NewInstance(file)
	require.Equal(t, 0, inst.position)

	last := inst.Step()
	require.Equal(t, 1, last)

	back := inst.JumpRoundStart()
	require.Equal(t, 0, back)
	require.Equal(t, engine.EventHandStart, file.Entries[back].Type)
}

func TestInstanceStateRedactsHoleCardsUnlessRevealed(t *testing.T) {
	s := twoPlayerState()
	transitions, err := engine.StartHand(s, deck.Create())
	require.NoError(t, err)

	rec := NewRecorder("g1", GameConfig{}, nil)
	rec.Record(transitions)
	file := rec.Snapshot()
	inst := NewInstance(file)

	// Hole cards are dealt at the DEAL entry; HAND_START precedes the deal.
	for i, e := range file.Entries {
		if e.Type == engine.EventDeal {
			require.NoError(t, inst.SetPosition(i))
			break
		}
	}

	state, err := inst.State("A")
	require.NoError(t, err)
	var aSeen, bSeen bool
	for _, p := range state.GameState.Players {
		if p.ID == "A" {
			aSeen = len(p.HoleCards) == 2
		}
		if p.ID == "B" {
			bSeen = len(p.HoleCards) == 2
		}
	}
	require.True(t, aSeen, "viewer always sees their own hole cards")
	require.False(t, bSeen, "viewer does not see another seat's hole cards by default")

	inst.SetCardVisibility([]string{"B"}, true)
	state, err = inst.State("A")
	require.NoError(t, err)
	for _, p := range state.GameState.Players {
		if p.ID == "B" {
			require.Len(t, p.HoleCards, 2, "revealed seat is now visible to this viewer")
		}
	}
}

func TestInstanceSetPositionRejectsOutOfRange(t *testing.T) {
	s := twoPlayerState()
	transitions, err := engine.StartHand(s, deck.Create())
	require.NoError(t, err)

	rec := NewRecorder("g1", GameConfig{}, nil)
	rec.Record(transitions)
	inst := NewInstance(rec.Snapshot())

	require.Error(t, inst.SetPosition(len(transitions)+10))
	require.Error(t, inst.SetPosition(-1))
}
