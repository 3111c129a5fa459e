package replay

import (
	"sort"
	"sync"

	"github.com/lox/pokerforbots-server/internal/engine"
)

// Recorder accumulates a single game's transitions into an append-only log.
// It never rejects or rewrites an entry once appended; the replay it
// produces is independent of anything that happens in the room afterward.
type Recorder struct {
	clock Clock

	mu        sync.Mutex
	gameID    string
	config    GameConfig
	startedAt int64 // set on first Record call, in clock-time nanoseconds
	started   bool
	players   map[string]PlayerSummary
	entries   []Entry
	chat      []ChatEntry
}

// NewRecorder starts an empty recorder for gameID. clock is nil-safe: a nil
// clock uses time.Now.
func NewRecorder(gameID string, config GameConfig, clock Clock) *Recorder {
	if clock == nil {
		clock = realClock{}
	}
	return &Recorder{
		clock:   clock,
		gameID:  gameID,
		config:  config,
		players: make(map[string]PlayerSummary),
	}
}

// NoteSeated adds or updates a player's roster entry. Called whenever a
// player joins or changes seat so the final file's roster reflects every
// seat occupied during the game, not just the seats occupied at the end.
func (r *Recorder) NoteSeated(playerID, displayName string, seatIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[playerID] = PlayerSummary{PlayerID: playerID, DisplayName: displayName, SeatIndex: seatIndex}
}

// Record appends one batch of engine transitions (as produced by a single
// StartHand/ProcessAction/ProcessTimeout call) to the log.
func (r *Recorder) Record(transitions []engine.Transition) {
	if len(transitions) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UnixNano()
	if !r.started {
		r.startedAt = now
		r.started = true
	}

	for _, t := range transitions {
		r.entries = append(r.entries, Entry{
			Index:        len(r.entries),
			OffsetMillis: (now - r.startedAt) / int64(1e6),
			Type:         t.Event.Type,
			Event:        t.Event,
			State:        t.State,
		})
	}
}

// RecordChat interleaves a chat message into the timeline at its current
// offset, for replay viewers who want to see table talk alongside play.
func (r *Recorder) RecordChat(playerID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UnixNano()
	if !r.started {
		r.startedAt = now
		r.started = true
	}

	r.chat = append(r.chat, ChatEntry{
		Index:        len(r.chat),
		OffsetMillis: (now - r.startedAt) / int64(1e6),
		PlayerID:     playerID,
		Message:      message,
	})
}

// Snapshot returns an independent copy of the log recorded so far, suitable
// for handing to a replay Instance or serializing to disk. Safe to call
// concurrently with Record.
func (r *Recorder) Snapshot() File {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]PlayerSummary, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].SeatIndex < players[j].SeatIndex })

	return File{
		Version:    fileVersion,
		GameID:     r.gameID,
		GameConfig: r.config,
		Players:    players,
		Entries:    append([]Entry(nil), r.entries...),
		Chat:       append([]ChatEntry(nil), r.chat...),
	}
}

// Len reports how many entries have been recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
