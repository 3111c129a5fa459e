package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots-server/internal/activegame"
	"github.com/lox/pokerforbots-server/internal/gamemanager"
	"github.com/lox/pokerforbots-server/internal/wsapi"
	"github.com/lox/pokerforbots-server/internal/wsclient"
)

// CLI is the debug client's entrypoint: dial a running pokerforbots-server,
// claim an identity, and drive the protocol interactively from a terminal.
// It exists to exercise the wire protocol the way a real player's client
// would, not as the graphical client spec.md explicitly puts out of scope.
type CLI struct {
	Server  string `kong:"default='http://localhost:8080',help='Server base URL'"`
	Name    string `kong:"default='Player',help='Display name to identify with'"`
	Token   string `kong:"help='Reconnect token from a previous session'"`
	LogFile string `kong:"default='pokerforbots-client.log',help='Diagnostic log file, since stderr is owned by the TUI'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("pokerforbots-client"),
		kong.Description("Debug client for the No-Limit Hold'em server"),
	)

	logFile, err := os.OpenFile(cli.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()

	// The TUI owns stdout/stderr, so diagnostics go to a file instead; force
	// true color on it so a `tail -f` in another terminal still renders the
	// level badges, the same reason the teacher's holdem-server forces a
	// color profile on its own dual file/stderr logger.
	diagLogger := charmlog.New(logFile)
	diagLogger.SetColorProfile(termenv.TrueColor)
	diagLogger.SetPrefix("client")

	socketLogger := zerolog.New(logFile).With().Timestamp().Logger()
	client, err := wsclient.Dial(cli.Server, socketLogger)
	if err != nil {
		diagLogger.Fatal("connect failed", "err", err)
	}

	events := make(chan tea.Msg, 64)
	wireHandlers(client, events, diagLogger)

	m := newModel(client, events)
	program := tea.NewProgram(m, tea.WithAltScreen())

	if err := client.Identify(cli.Name, cli.Token); err != nil {
		diagLogger.Fatal("identify failed", "err", err)
	}

	if _, err := program.Run(); err != nil {
		diagLogger.Fatal("tui exited with error", "err", err)
	}
}

// wireHandlers registers one wsclient.Handler per server message type,
// decoding its payload and forwarding a typed Bubble Tea message onto
// events. This is the network-to-UI bridge the teacher's tui.Bridge plays
// for the in-process bot client. Every inbound envelope is also noted in
// the diagnostic log, since the TUI itself only renders the effect of a
// message, not its arrival.
func wireHandlers(client *wsclient.Client, events chan<- tea.Msg, diag *charmlog.Logger) {
	client.On(wsapi.TypeIdentified, func(raw json.RawMessage) {
		var payload wsapi.IdentifiedPayload
		if json.Unmarshal(raw, &payload) == nil {
			diag.Debug("identified", "playerId", payload.PlayerID)
			events <- identifiedMsg(payload)
		}
	})
	client.On(wsapi.TypeGameList, func(raw json.RawMessage) {
		var payload []gamemanager.Summary
		if json.Unmarshal(raw, &payload) == nil {
			diag.Debug("game list received", "count", len(payload))
			events <- gameListMsg(payload)
		}
	})
	client.On(wsapi.TypeGameJoined, func(raw json.RawMessage) {
		var payload wsapi.GameJoinedPayload
		if json.Unmarshal(raw, &payload) == nil {
			diag.Debug("game joined", "gameId", payload.GameState.GameID)
			events <- gameJoinedMsg(payload)
		}
	})
	client.On(wsapi.TypeGameState, func(raw json.RawMessage) {
		var payload activegame.GameStateMessage
		if json.Unmarshal(raw, &payload) == nil {
			diag.Debug("game state", "handNumber", payload.GameState.HandNumber)
			events <- gameStateMsg(payload)
		}
	})
	client.On(wsapi.TypeTimeWarning, func(raw json.RawMessage) {
		var payload activegame.TimeWarning
		if json.Unmarshal(raw, &payload) == nil {
			diag.Debug("time warning", "remainingMs", payload.RemainingMs)
			events <- timeWarningMsg(payload)
		}
	})
	client.On(wsapi.TypeGameOver, func(raw json.RawMessage) {
		var payload activegame.GameOver
		if json.Unmarshal(raw, &payload) == nil {
			diag.Info("game over", "reason", payload.Reason)
			events <- gameOverMsg(payload)
		}
	})
	client.On(wsapi.TypeChat, func(raw json.RawMessage) {
		var payload activegame.ChatMessage
		if json.Unmarshal(raw, &payload) == nil {
			diag.Debug("chat", "playerId", payload.PlayerID)
			events <- chatMsg(payload)
		}
	})
	client.On(wsapi.TypeError, func(raw json.RawMessage) {
		var payload wsapi.ErrorPayload
		if json.Unmarshal(raw, &payload) == nil {
			diag.Warn("server error", "code", payload.Code, "message", payload.Message)
			events <- serverErrMsg(payload)
		}
	})

	go func() {
		<-client.Done()
		diag.Info("connection closed")
		events <- connLostMsg{}
	}()
}
