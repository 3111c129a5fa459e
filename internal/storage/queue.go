package storage

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/replay"
)

// Queue serializes writes to a Store through a single background
// goroutine, the same one-goroutine-owns-the-resource shape
// internal/activegame.Room uses for engine state: a gamemanager tearing
// down several rooms at once never has two goroutines racing to write the
// same file-backed store concurrently, and a slow disk never blocks a
// room's own executor goroutine since SaveReplayAsync only enqueues.
type Queue struct {
	store  Store
	logger zerolog.Logger
	jobs   chan func(Store)
}

// NewQueue wraps store with a bounded job queue. It does not start the
// worker: call Run in its own goroutine; it exits when ctx is canceled.
func NewQueue(store Store, logger zerolog.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger.With().Str("component", "storage_queue").Logger(),
		jobs:   make(chan func(Store), 64),
	}
}

// Run drains the job queue until ctx is canceled. Jobs already enqueued
// when ctx is canceled are dropped rather than applied.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			job(q.store)
		}
	}
}

// SaveReplayAsync enqueues a replay save without blocking the caller. If
// the queue is full the write is dropped and logged rather than blocking
// the room goroutine that called it.
func (q *Queue) SaveReplayAsync(file replay.File) {
	job := func(s Store) {
		if err := s.SaveReplay(file); err != nil {
			q.logger.Error().Err(err).Str("game_id", file.GameID).Msg("failed to persist replay")
		}
	}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn().Str("game_id", file.GameID).Msg("storage queue full, dropping replay save")
	}
}

// SaveTokenAsync enqueues a reconnect token write without blocking the
// caller.
func (q *Queue) SaveTokenAsync(token, playerID string) {
	job := func(s Store) {
		if err := s.SaveToken(token, playerID); err != nil {
			q.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to persist token")
		}
	}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn().Str("player_id", playerID).Msg("storage queue full, dropping token save")
	}
}

// ForgetTokenAsync enqueues a reconnect token revocation without blocking
// the caller.
func (q *Queue) ForgetTokenAsync(token string) {
	job := func(s Store) {
		if err := s.ForgetToken(token); err != nil {
			q.logger.Error().Err(err).Msg("failed to revoke token")
		}
	}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn().Msg("storage queue full, dropping token revocation")
	}
}
