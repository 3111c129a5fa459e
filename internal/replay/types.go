// Package replay records a hand's transitions as they happen and lets a
// spectator step through them afterward. The recorder is a pure append-only
// log; the instance is a read-only cursor over an already-recorded (or
// loaded-from-disk) log. Neither package touches the live engine state: by
// the time a spectator is replaying hand 4, hand 9 may already be underway.
package replay

import (
	"time"

	"github.com/lox/pokerforbots-server/internal/engine"
)

// Clock abstracts time for deterministic recorder tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// PlayerSummary is the roster entry for one seat across the whole recorded
// game, deduplicated by player id (a reconnect doesn't add a second entry).
type PlayerSummary struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	SeatIndex   int    `json:"seatIndex"`
}

// ChatEntry is a chat message interleaved into the replay timeline.
type ChatEntry struct {
	Index            int       `json:"index"`
	OffsetMillis     int64     `json:"offsetMillis"`
	PlayerID         string    `json:"playerId"`
	Message          string    `json:"message"`
}

// Entry is one recorded engine transition: the event that occurred and the
// complete engine state as of that event, timestamped relative to the
// recorder's start.
type Entry struct {
	Index        int           `json:"index"`
	OffsetMillis int64         `json:"offsetMillis"`
	Type         engine.EventType `json:"type"`
	Event        engine.Event  `json:"event"`
	State        engine.State  `json:"engineState"`
}

// GameConfig is the subset of room configuration a replay viewer needs to
// make sense of stack sizes and timing; it mirrors the stake fields of
// internal/config.TableSettings without importing it, so replay never depends on the config package.
type GameConfig struct {
	SmallBlind    int `json:"smallBlind"`
	BigBlind      int `json:"bigBlind"`
	StartingStack int `json:"startingStack"`
}

// File is the full persisted replay artifact for one game: everything a
// replay instance needs to reconstruct playback without the original room.
type File struct {
	Version    int             `json:"version"`
	GameID     string          `json:"gameId"`
	GameConfig GameConfig      `json:"gameConfig"`
	Players    []PlayerSummary `json:"players"`
	Entries    []Entry         `json:"entries"`
	Chat       []ChatEntry     `json:"chat"`
}

const fileVersion = 1
