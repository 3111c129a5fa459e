package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/deck"
)

func TestEvaluateStraightBeatsPair(t *testing.T) {
	board := deck.MustParseCards("KhQdJcTh3d")
	straight, err := Evaluate(deck.MustParseCards("AhAs"), board)
	require.NoError(t, err)

	pair, err := Evaluate(deck.MustParseCards("2c2d"), board)
	require.NoError(t, err)

	assert.True(t, straight.Better(pair))
}

func TestBestPicksHighestRankAmongCandidates(t *testing.T) {
	board := deck.MustParseCards("KhQdJcTh3d")
	aceHighStraight, err := Evaluate(deck.MustParseCards("AhAs"), board)
	require.NoError(t, err)
	pair, err := Evaluate(deck.MustParseCards("2c2d"), board)
	require.NoError(t, err)

	winners := Best([]Rank{pair, aceHighStraight})
	assert.Equal(t, []int{1}, winners)
}

func TestEvaluateRejectsWrongCardCounts(t *testing.T) {
	_, err := Evaluate(deck.MustParseCards("Ah"), deck.MustParseCards("KhQdJcTh9d"))
	assert.Error(t, err)

	_, err = Evaluate(deck.MustParseCards("AhAs"), deck.MustParseCards("KhQd"))
	assert.Error(t, err)
}
