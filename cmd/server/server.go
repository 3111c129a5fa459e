package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerforbots-server/internal/activegame"
	"github.com/lox/pokerforbots-server/internal/config"
	"github.com/lox/pokerforbots-server/internal/gamemanager"
	"github.com/lox/pokerforbots-server/internal/session"
	"github.com/lox/pokerforbots-server/internal/storage"
	"github.com/lox/pokerforbots-server/internal/wsapi"
)

// appServer wires the config, storage, session, gamemanager, and wsapi
// layers behind one HTTP mux. newServer calls routes on a fresh mux for
// every appServer, so tests that construct more than one appServer in a
// process never register a route twice.
type appServer struct {
	cfg        *config.Config
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
	sessions   *session.Manager
	games      *gamemanager.Manager
	handler    *wsapi.Handler
	store      storage.Store
	queue      *storage.Queue
	httpServer *http.Server
}

func newServer(cfg *config.Config, clock quartz.Clock, logger zerolog.Logger) (*appServer, error) {
	var store storage.Store
	if cfg.Store.Driver == "file" {
		fileStore, err := storage.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		store = fileStore
	} else {
		store = storage.NewMemoryStore()
	}
	queue := storage.NewQueue(store, logger)

	sessions := session.NewManager(logger)
	games := gamemanager.New(roomConfig(cfg), clock, logger, sessions)
	handler := wsapi.New(sessions, games, logger)

	games.CreateRoomWithConfig(roomConfig(cfg))

	mux := http.NewServeMux()
	app := &appServer{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		games:    games,
		handler:  handler,
		store:    store,
		queue:    queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		httpServer: &http.Server{Addr: cfg.Address(), Handler: mux},
	}
	app.routes(mux)
	return app, nil
}

func roomConfig(cfg *config.Config) activegame.Config {
	return activegame.Config{
		SmallBlind:          cfg.Table.SmallBlind,
		BigBlind:            cfg.Table.BigBlind,
		MaxPlayers:          cfg.Table.MaxPlayers,
		StartingStack:       cfg.Table.StartingStack,
		ActionTimeout:       cfg.Table.ActionTimeout(),
		HandDelay:           cfg.Table.HandDelay(),
		MinReadyPlayers:     cfg.Table.MinReadyPlayers,
		SpectatorVisibility: cfg.Table.Visibility(),
	}
}

func (a *appServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", a.handleWebSocket)
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/games", a.handleGames)
	mux.HandleFunc("/replays", a.handleReplays)
}

// runBackground drives the storage queue's worker goroutine until ctx is
// canceled, so a queued replay/token write is never left unflushed by a
// server that never shuts down through the normal path.
func (a *appServer) runBackground(ctx context.Context) {
	a.queue.Run(ctx)
}

func (a *appServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	sess := session.New(conn, "", "", a.logger)
	sess.Start(a.handler.Dispatch)
}

func (a *appServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *appServer) handleGames(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.games.ListRooms())
}

// handleReplays lists every replay persisted to the store so far, including
// ones from rooms already torn down.
func (a *appServer) handleReplays(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.store.ListReplays()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summaries)
}

// persistAndRemoveRoom seals id's recorder into a replay.File, writes it to
// the store synchronously, and drops the room from the registry. Shutdown
// calls this directly rather than through the queue: by the time shutdown
// runs, the queue's background worker has already stopped with the rest of
// the server's context, so an enqueued job here would never be drained.
func (a *appServer) persistAndRemoveRoom(id string) error {
	recorder, ok := a.games.RecorderFor(id)
	if !ok {
		return nil
	}
	if err := a.store.SaveReplay(recorder.Snapshot()); err != nil {
		return err
	}
	return a.games.RemoveRoom(id)
}

// persistAllRooms flushes every currently live room's replay to the store.
// Called on graceful shutdown so a server restart doesn't lose in-progress
// games' history. Rooms are flushed concurrently, one errgroup worker per
// room.
func (a *appServer) persistAllRooms() {
	summaries := a.games.ListRooms()
	g := new(errgroup.Group)
	for _, summary := range summaries {
		gameID := summary.ID
		g.Go(func() error {
			if err := a.persistAndRemoveRoom(gameID); err != nil {
				a.logger.Error().Err(err).Str("game_id", gameID).Msg("failed to persist room on shutdown")
			}
			return nil
		})
	}
	_ = g.Wait()
}
