// Package gamemanager is the process-wide registry of live activegame.Rooms:
// it creates rooms, looks them up by id for routing, and reports summaries
// for the lobby listGames action.
package gamemanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/activegame"
	"github.com/lox/pokerforbots-server/internal/replay"
)

// Summary is the lightweight, JSON-able view of a room used by the lobby's
// listGames response.
type Summary struct {
	ID            string `json:"id"`
	SmallBlind    int    `json:"smallBlind"`
	BigBlind      int    `json:"bigBlind"`
	MaxPlayers    int    `json:"maxPlayers"`
	PlayerCount   int    `json:"playerCount"`
	HandInProgress bool  `json:"handInProgress"`
}

// entry bundles a room with the cancel func gamemanager uses to stop the
// room's Run goroutine. The room's replay recorder is reached through
// room.Recorder() (see RecorderFor).
type entry struct {
	room   *activegame.Room
	cancel context.CancelFunc
}

// Manager tracks every currently live room.
type Manager struct {
	mu      sync.RWMutex
	rooms   map[string]*entry
	config  activegame.Config
	clock   quartz.Clock
	logger  zerolog.Logger
	pub     activegame.Publisher
}

// New builds an empty registry. Every room it creates shares config as a
// starting point (lobby-created games may override stakes in the future via
// CreateRoomWithConfig; only the shared default is wired in for now).
func New(config activegame.Config, clock quartz.Clock, logger zerolog.Logger, pub activegame.Publisher) *Manager {
	return &Manager{
		rooms:  make(map[string]*entry),
		config: config,
		clock:  clock,
		logger: logger.With().Str("component", "game_manager").Logger(),
		pub:    pub,
	}
}

// CreateRoom mints a fresh room id, starts its executor goroutine, and
// registers it for lookup and listing.
func (m *Manager) CreateRoom() *activegame.Room {
	return m.CreateRoomWithConfig(m.config)
}

// CreateRoomWithConfig is CreateRoom with a caller-supplied config, for a
// lobby that offers more than one stake level.
func (m *Manager) CreateRoomWithConfig(config activegame.Config) *activegame.Room {
	id := activegame.NewID()
	room := activegame.New(id, config, m.clock, m.logger, m.pub)

	ctx, cancel := context.WithCancel(context.Background())
	go room.Run(ctx)

	m.mu.Lock()
	m.rooms[id] = &entry{room: room, cancel: cancel}
	m.mu.Unlock()

	m.logger.Info().Str("room_id", id).Msg("room created")
	return room
}

// GetRoom looks up a room by id.
func (m *Manager) GetRoom(id string) (*activegame.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rooms[id]
	if !ok {
		return nil, false
	}
	return e.room, true
}

// RemoveRoom stops a room's executor goroutine and drops it from the
// registry. Returns an error if no such room exists.
func (m *Manager) RemoveRoom(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rooms[id]
	if !ok {
		return fmt.Errorf("gamemanager: unknown room %q", id)
	}
	e.cancel()
	delete(m.rooms, id)
	return nil
}

// ListRooms returns a lightweight summary of every live room, in no
// particular order, for the lobby's listGames action. It intentionally
// avoids locking each room's actor goroutine: RoomSnapshot gives it a cheap,
// eventually-consistent view instead.
func (m *Manager) ListRooms() []Summary {
	m.mu.RLock()
	rooms := make([]*activegame.Room, 0, len(m.rooms))
	for _, e := range m.rooms {
		rooms = append(rooms, e.room)
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		snap := room.Snapshot()
		summaries = append(summaries, Summary{
			ID:             snap.ID,
			SmallBlind:     snap.SmallBlind,
			BigBlind:       snap.BigBlind,
			MaxPlayers:     snap.MaxPlayers,
			PlayerCount:    snap.PlayerCount,
			HandInProgress: snap.HandInProgress,
		})
	}
	return summaries
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// RecorderFor exposes a room's replay recorder, e.g. to snapshot a finished
// game's history before RemoveRoom drops it.
func (m *Manager) RecorderFor(id string) (*replay.Recorder, bool) {
	room, ok := m.GetRoom(id)
	if !ok {
		return nil, false
	}
	return room.Recorder(), true
}
