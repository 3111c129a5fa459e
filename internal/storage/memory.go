package storage

import (
	"sync"

	"github.com/lox/pokerforbots-server/internal/replay"
)

// MemoryStore is a process-lifetime Store backed by plain maps. Everything
// is lost on restart; it exists for tests and for a server run with no
// configured data directory.
type MemoryStore struct {
	mu      sync.RWMutex
	replays map[string]replay.File
	tokens  map[string]string // token -> playerID
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		replays: make(map[string]replay.File),
		tokens:  make(map[string]string),
	}
}

func (s *MemoryStore) SaveReplay(file replay.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replays[file.GameID] = file
	return nil
}

func (s *MemoryStore) LoadReplay(gameID string) (replay.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.replays[gameID]
	if !ok {
		return replay.File{}, ErrNotFound
	}
	return file, nil
}

func (s *MemoryStore) ListReplays() ([]ReplaySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]ReplaySummary, 0, len(s.replays))
	for _, file := range s.replays {
		summaries = append(summaries, summarize(file))
	}
	return summaries, nil
}

func (s *MemoryStore) SaveToken(token, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = playerID
	return nil
}

func (s *MemoryStore) ResolveToken(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.tokens[token]
	if !ok {
		return "", ErrNotFound
	}
	return playerID, nil
}

func (s *MemoryStore) ForgetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
