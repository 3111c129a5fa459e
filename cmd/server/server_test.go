package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/config"
	"github.com/lox/pokerforbots-server/internal/wsapi"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Table.MinReadyPlayers = 2
	return cfg
}

func newTestAppServer(t *testing.T) *appServer {
	t.Helper()
	srv, err := newServer(testConfig(t), quartz.NewMock(t), zerolog.Nop())
	require.NoError(t, err)
	return srv
}

func dialIdentify(t *testing.T, wsURL string) (*websocket.Conn, string) {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(wsapi.IdentifyPayload{PlayerName: "TestPlayer"})
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(map[string]any{
		"action":  wsapi.ActionIdentify,
		"payload": json.RawMessage(payload),
	}))

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, ws.ReadJSON(&env))
	require.Equal(t, wsapi.TypeIdentified, env.Type)

	var identified wsapi.IdentifiedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &identified))
	require.NotEmpty(t, identified.PlayerID)
	return ws, identified.PlayerID
}

func TestHandleWebSocketIdentifyHandshake(t *testing.T) {
	srv := newTestAppServer(t)

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, playerID := dialIdentify(t, wsURL)
	defer ws.Close()

	require.NotEmpty(t, playerID)
}

func TestHandleWebSocketListGamesAfterIdentify(t *testing.T) {
	srv := newTestAppServer(t)

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _ := dialIdentify(t, wsURL)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]any{"action": wsapi.ActionListGames}))

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, ws.ReadJSON(&env))
	require.Equal(t, wsapi.TypeGameList, env.Type)

	var games []map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &games))
	require.Len(t, games, 1)
}

func TestHandleHealthReturnsOK(t *testing.T) {
	srv := newTestAppServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())
}

func TestHandleGamesListsCreatedRoom(t *testing.T) {
	srv := newTestAppServer(t)

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	rec := httptest.NewRecorder()
	srv.handleGames(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
}

func TestHandleReplaysEmptyBeforeAnyRoomPersisted(t *testing.T) {
	srv := newTestAppServer(t)

	req := httptest.NewRequest(http.MethodGet, "/replays", nil)
	rec := httptest.NewRecorder()
	srv.handleReplays(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 0)
}

func TestPersistAndRemoveRoomWritesToStoreAndDropsRoom(t *testing.T) {
	srv := newTestAppServer(t)

	rooms := srv.games.ListRooms()
	require.Len(t, rooms, 1)
	roomID := rooms[0].ID

	require.NoError(t, srv.persistAndRemoveRoom(roomID))
	require.Equal(t, 0, srv.games.Count())

	summaries, err := srv.store.ListReplays()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, roomID, summaries[0].GameID)
}

func TestPersistAllRoomsFlushesEveryRoom(t *testing.T) {
	srv := newTestAppServer(t)
	srv.games.CreateRoomWithConfig(roomConfig(testConfig(t)))
	require.Equal(t, 2, srv.games.Count())

	srv.persistAllRooms()

	require.Equal(t, 0, srv.games.Count())
	summaries, err := srv.store.ListReplays()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
}

func TestSplitAddrFoldsHostAndPort(t *testing.T) {
	host, port := splitAddr("0.0.0.0:9000", 8080)
	require.Equal(t, "0.0.0.0", host)
	require.Equal(t, 9000, port)

	host, port = splitAddr(":9001", 8080)
	require.Equal(t, "localhost", host)
	require.Equal(t, 9001, port)

	host, port = splitAddr("not-a-host-port", 8080)
	require.Equal(t, "not-a-host-port", host)
	require.Equal(t, 8080, port)
}
