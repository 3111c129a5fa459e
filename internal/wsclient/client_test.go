package wsclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots-server/internal/validator"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func TestDialSendsIdentifyEnvelope(t *testing.T) {
	received := make(chan Envelope, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		received <- env
	}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(wsURL, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Identify("Alice", ""))

	select {
	case env := <-received:
		require.Equal(t, "identify", env.Action)
		var payload struct {
			PlayerName string `json:"playerName"`
		}
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		require.Equal(t, "Alice", payload.PlayerName)
	case <-time.After(time.Second):
		t.Fatal("server never received identify envelope")
	}
}

func TestOnDispatchesInboundEnvelopeToRegisteredHandler(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		payload, _ := json.Marshal(map[string]string{"gameId": "g1"})
		_ = conn.WriteJSON(Envelope{Type: "gameJoined", Payload: payload})
		time.Sleep(50 * time.Millisecond)
	}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(wsURL, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	got := make(chan string, 1)
	client.On("gameJoined", func(payload json.RawMessage) {
		var decoded struct {
			GameID string `json:"gameId"`
		}
		_ = json.Unmarshal(payload, &decoded)
		got <- decoded.GameID
	})

	select {
	case gameID := <-got:
		require.Equal(t, "g1", gameID)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestActionEnqueuesTypeAndAmount(t *testing.T) {
	received := make(chan Envelope, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		received <- env
	}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(wsURL, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Action(3, validator.Raise, 40))

	select {
	case env := <-received:
		require.Equal(t, "playerAction", env.Action)
		var payload struct {
			HandNumber int    `json:"handNumber"`
			Type       string `json:"type"`
			Amount     int    `json:"amount"`
		}
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		require.Equal(t, 3, payload.HandNumber)
		require.Equal(t, "RAISE", payload.Type)
		require.Equal(t, 40, payload.Amount)
	case <-time.After(time.Second):
		t.Fatal("server never received playerAction envelope")
	}
}
