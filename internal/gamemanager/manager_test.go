package gamemanager

import (
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/activegame"
)

type nullPublisher struct {
	mu       sync.Mutex
	messages int
}

func (p *nullPublisher) Publish(playerID string, message any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages++
}

func testConfig() activegame.Config {
	return activegame.Config{
		SmallBlind:      10,
		BigBlind:        20,
		MaxPlayers:      6,
		StartingStack:   1000,
		ActionTimeout:   5 * time.Second,
		HandDelay:       2 * time.Second,
		MinReadyPlayers: 2,
	}
}

func TestCreateRoomRegistersAndListsIt(t *testing.T) {
	mgr := New(testConfig(), quartz.NewMock(t), zerolog.Nop(), &nullPublisher{})

	room := mgr.CreateRoom()
	require.NotEmpty(t, room.ID())

	found, ok := mgr.GetRoom(room.ID())
	require.True(t, ok)
	require.Same(t, room, found)

	require.Equal(t, 1, mgr.Count())
	summaries := mgr.ListRooms()
	require.Len(t, summaries, 1)
	require.Equal(t, room.ID(), summaries[0].ID)
	require.Equal(t, 20, summaries[0].BigBlind)
}

func TestRemoveRoomDropsItFromRegistry(t *testing.T) {
	mgr := New(testConfig(), quartz.NewMock(t), zerolog.Nop(), &nullPublisher{})
	room := mgr.CreateRoom()

	require.NoError(t, mgr.RemoveRoom(room.ID()))
	_, ok := mgr.GetRoom(room.ID())
	require.False(t, ok)

	require.Error(t, mgr.RemoveRoom(room.ID()), "removing an already-removed room is an error")
}

func TestListRoomsReflectsSeatedPlayers(t *testing.T) {
	mgr := New(testConfig(), quartz.NewMock(t), zerolog.Nop(), &nullPublisher{})
	room := mgr.CreateRoom()

	require.NoError(t, room.Join("A", "Alice"))
	require.NoError(t, room.Join("B", "Bob"))

	require.Eventually(t, func() bool {
		for _, s := range mgr.ListRooms() {
			if s.ID == room.ID() {
				return s.PlayerCount == 2
			}
		}
		return false
	}, time.Second, time.Millisecond)
}
