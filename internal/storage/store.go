// Package storage persists replay files and reconnect identities outside
// the process, so a restarted server can still serve old games' history.
// Every Store implementation
// is safe for concurrent use; callers that want writes off a hot path
// should wrap one in a Queue rather than calling it directly.
package storage

import (
	"errors"

	"github.com/lox/pokerforbots-server/internal/engine"
	"github.com/lox/pokerforbots-server/internal/replay"
)

// ErrNotFound is returned by a Store's Load/Resolve methods when the
// requested id has no record.
var ErrNotFound = errors.New("storage: not found")

// ReplaySummary is the lobby-level view of a persisted game.
// FileStore.ListReplays builds each one by loading the whole replay file.
type ReplaySummary struct {
	GameID     string `json:"gameId"`
	HandCount  int    `json:"handCount"`
	PlayerName []string `json:"playerNames"`
}

// ReplayStore persists sealed replay.Files so they outlive the room that
// produced them.
type ReplayStore interface {
	SaveReplay(file replay.File) error
	LoadReplay(gameID string) (replay.File, error)
	ListReplays() ([]ReplaySummary, error)
}

// IdentityStore persists a reconnect-token-to-player-id mapping.
// internal/session.Manager keeps the tokens it mints in memory and does not
// write them to an IdentityStore, so those tokens do not survive a server
// restart.
type IdentityStore interface {
	SaveToken(token, playerID string) error
	ResolveToken(token string) (playerID string, err error)
	ForgetToken(token string) error
}

// Store bundles both persistence concerns behind one handle, since a
// server only ever wants one backing driver for both.
type Store interface {
	ReplayStore
	IdentityStore
}

func summarize(file replay.File) ReplaySummary {
	names := make([]string, len(file.Players))
	for i, p := range file.Players {
		names[i] = p.DisplayName
	}
	handCount := 0
	for _, e := range file.Entries {
		if e.Type == engine.EventHandStart {
			handCount++
		}
	}
	return ReplaySummary{GameID: file.GameID, HandCount: handCount, PlayerName: names}
}
