package replay

import (
	"fmt"
	"sync"

	"github.com/lox/pokerforbots-server/internal/engine"
)

// Instance is a per-spectator cursor over a recorded (or loaded) File. Two
// spectators watching the same replay hold independent Instances: each can
// play, pause, scrub, and adjust speed without affecting the other.
type Instance struct {
	file File

	mu       sync.Mutex
	position int
	playing  bool
	speed    float64
	reveal   map[string]bool
}

// NewInstance builds a paused, speed-1x instance positioned at the first
// entry of file.
func NewInstance(file File) *Instance {
	return &Instance{
		file:   file,
		speed:  1,
		reveal: make(map[string]bool),
	}
}

// Len reports how many entries the underlying file holds.
func (inst *Instance) Len() int {
	return len(inst.file.Entries)
}

// Play resumes automatic advancement (advancement itself is driven by the
// caller's own ticker; Instance only tracks the play/pause flag).
func (inst *Instance) Play() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.playing = true
}

// Pause stops automatic advancement.
func (inst *Instance) Pause() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.playing = false
}

// IsPlaying reports the current play/pause flag.
func (inst *Instance) IsPlaying() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.playing
}

// Step advances the cursor by one entry, clamped to the last entry, and
// returns the new position.
func (inst *Instance) Step() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.position < len(inst.file.Entries)-1 {
		inst.position++
	}
	return inst.position
}

// SetPosition jumps directly to index. An index outside [0, Len()) returns
// an error and leaves the cursor where it was.
func (inst *Instance) SetPosition(index int) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if index < 0 || index >= len(inst.file.Entries) {
		return fmt.Errorf("replay: position %d out of range [0, %d)", index, len(inst.file.Entries))
	}
	inst.position = index
	return nil
}

// SetSpeed changes the playback speed multiplier; must be positive.
func (inst *Instance) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("replay: speed must be positive, got %v", speed)
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.speed = speed
	return nil
}

// Speed returns the current playback speed multiplier.
func (inst *Instance) Speed() float64 {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.speed
}

// JumpRoundStart moves the cursor back to the most recent HAND_START entry
// at or before the current position.
func (inst *Instance) JumpRoundStart() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for i := inst.position; i >= 0; i-- {
		if inst.file.Entries[i].Type == engine.EventHandStart {
			inst.position = i
			break
		}
	}
	return inst.position
}

// JumpNextRound moves the cursor forward to the next HAND_START entry after
// the current position, or to the last entry if there is no further hand.
func (inst *Instance) JumpNextRound() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for i := inst.position + 1; i < len(inst.file.Entries); i++ {
		if inst.file.Entries[i].Type == engine.EventHandStart {
			inst.position = i
			return inst.position
		}
	}
	inst.position = len(inst.file.Entries) - 1
	return inst.position
}

// SetCardVisibility overrides hole-card visibility for the given player ids
// for the remainder of this instance's life. Pass engine.RevealAll to
// reveal every seat regardless of id.
func (inst *Instance) SetCardVisibility(playerIDs []string, reveal bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for _, id := range playerIDs {
		if reveal {
			inst.reveal[id] = true
		} else {
			delete(inst.reveal, id)
		}
	}
}

// State projects the entry at the current cursor position for viewerID,
// applying this instance's visibility overrides on top of the viewer's own
// hole cards.
func (inst *Instance) State(viewerID string) (ClientReplayState, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if len(inst.file.Entries) == 0 {
		return ClientReplayState{}, fmt.Errorf("replay: instance has no entries")
	}

	entry := inst.file.Entries[inst.position]
	projected := engine.ToClientGameState(entry.State, viewerID, inst.reveal)

	return ClientReplayState{
		Position:     inst.position,
		Length:       len(inst.file.Entries),
		OffsetMillis: entry.OffsetMillis,
		Event:        entry.Event,
		GameState:    projected,
		Playing:      inst.playing,
		Speed:        inst.speed,
	}, nil
}

// ClientReplayState is the wire shape sent to a replay viewer after any
// cursor-changing operation.
type ClientReplayState struct {
	Position     int                    `json:"position"`
	Length       int                    `json:"length"`
	OffsetMillis int64                  `json:"offsetMillis"`
	Event        engine.Event           `json:"event"`
	GameState    engine.ClientGameState `json:"gameState"`
	Playing      bool                   `json:"playing"`
	Speed        float64                `json:"speed"`
}
