package storage

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/engine"
	"github.com/lox/pokerforbots-server/internal/replay"
)

func sampleFile(gameID string) replay.File {
	return replay.File{
		Version: 1,
		GameID:  gameID,
		Players: []replay.PlayerSummary{{PlayerID: "A", DisplayName: "Alice", SeatIndex: 0}},
		Entries: []replay.Entry{{Index: 0, Type: engine.EventHandStart, Event: engine.Event{Type: engine.EventHandStart}}},
	}
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestStoreRoundTripsReplay(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			file := sampleFile("g1")
			require.NoError(t, store.SaveReplay(file))

			got, err := store.LoadReplay("g1")
			require.NoError(t, err)
			require.Equal(t, file.GameID, got.GameID)
			require.Len(t, got.Entries, 1)

			summaries, err := store.ListReplays()
			require.NoError(t, err)
			require.Len(t, summaries, 1)
			require.Equal(t, "g1", summaries[0].GameID)
			require.Equal(t, 1, summaries[0].HandCount)
		})
	}
}

func TestStoreLoadReplayMissingReturnsNotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.LoadReplay("nope")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreTokenRoundTrips(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveToken("tok-1", "player-1"))

			playerID, err := store.ResolveToken("tok-1")
			require.NoError(t, err)
			require.Equal(t, "player-1", playerID)

			require.NoError(t, store.ForgetToken("tok-1"))
			_, err = store.ResolveToken("tok-1")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStorePersistsTokensAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveToken("tok-1", "player-1"))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	playerID, err := reopened.ResolveToken("tok-1")
	require.NoError(t, err)
	require.Equal(t, "player-1", playerID)
}

func TestQueuePersistsReplayAsynchronously(t *testing.T) {
	store := NewMemoryStore()
	queue := NewQueue(store, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go queue.Run(ctx)

	queue.SaveReplayAsync(sampleFile("async-1"))

	require.Eventually(t, func() bool {
		_, err := store.LoadReplay("async-1")
		return err == nil
	}, time.Second, time.Millisecond)
}
