package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/pokerforbots-server/internal/activegame"
	"github.com/lox/pokerforbots-server/internal/engine"
	"github.com/lox/pokerforbots-server/internal/gamemanager"
	"github.com/lox/pokerforbots-server/internal/validator"
	"github.com/lox/pokerforbots-server/internal/wsapi"
	"github.com/lox/pokerforbots-server/internal/wsclient"
)

// Inbound messages the network goroutine feeds into the Bubble Tea program,
// mirroring the teacher's NetworkAgent → TUIModel bridge but over the real
// JSON protocol instead of an in-process game.Table.
type (
	identifiedMsg   wsapi.IdentifiedPayload
	gameListMsg     []gamemanager.Summary
	gameJoinedMsg   wsapi.GameJoinedPayload
	gameStateMsg    activegame.GameStateMessage
	timeWarningMsg  activegame.TimeWarning
	gameOverMsg     activegame.GameOver
	chatMsg         activegame.ChatMessage
	serverErrMsg    wsapi.ErrorPayload
	connLostMsg     struct{ err error }
)

// model is the Bubble Tea model for the debug client: a scrollback log pane
// plus a command-line input pane, the same two-pane shape as the teacher's
// TUIModel, driven here by a real wsclient.Client instead of a local Table.
type model struct {
	client *wsclient.Client
	events <-chan tea.Msg

	logViewport viewport.Model
	actionInput textinput.Model

	gameLog  []string
	quitting bool

	playerID   string
	gameID     string
	state      *engine.ClientGameState
	lastErr    string

	width  int
	height int
}

func newModel(client *wsclient.Client, events <-chan tea.Msg) *model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "join <gameId> | ready | fold | check | call | bet <n> | raise <n> | allin | reveal | say <msg>"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &model{
		client:      client,
		events:      events,
		logViewport: vp,
		actionInput: ti,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForServerMsg(m.events))
}

// waitForServerMsg bridges the network goroutine's channel into Bubble
// Tea's Cmd/Msg loop: block for one message, return it, and the caller
// re-issues this command so the next message is still waited on.
func waitForServerMsg(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			_ = m.client.Close()
			return m, tea.Quit
		case "enter":
			input := strings.TrimSpace(m.actionInput.Value())
			m.actionInput.SetValue("")
			if input != "" {
				m.handleInput(input)
			}
		case "up", "pgup":
			m.logViewport.HalfPageUp()
		case "down", "pgdown":
			m.logViewport.HalfPageDown()
		}

	case identifiedMsg:
		m.playerID = msg.PlayerID
		m.appendLog(fmt.Sprintf("identified as %s", msg.PlayerID))
		cmds = append(cmds, serverCmd(m.client.ListGames), waitForServerMsg(m.events))

	case gameListMsg:
		if len(msg) == 0 {
			m.appendLog("no games currently open")
		}
		for _, g := range msg {
			m.appendLog(fmt.Sprintf("game %s  %d/%d players  blinds %d/%d", g.ID, g.PlayerCount, g.MaxPlayers, g.SmallBlind, g.BigBlind))
		}
		cmds = append(cmds, waitForServerMsg(m.events))

	case gameJoinedMsg:
		m.gameID = msg.GameState.GameID
		state := msg.GameState
		m.state = &state
		m.appendLog(fmt.Sprintf("joined game %s", msg.GameState.GameID))
		for _, evt := range msg.HandEvents {
			m.appendLog(formatEvent(evt))
		}
		cmds = append(cmds, waitForServerMsg(m.events))

	case gameStateMsg:
		state := msg.GameState
		m.state = &state
		if msg.Event != nil {
			m.appendLog(formatEvent(*msg.Event))
		}
		cmds = append(cmds, waitForServerMsg(m.events))

	case timeWarningMsg:
		m.appendLog(warningStyle.Render(fmt.Sprintf("%.0fs remaining", float64(msg.RemainingMs)/1000)))
		cmds = append(cmds, waitForServerMsg(m.events))

	case gameOverMsg:
		m.appendLog(errorStyle.Render(fmt.Sprintf("game over (%s)", msg.Reason)))
		for _, s := range msg.Standings {
			m.appendLog(fmt.Sprintf("  %s: %d", s.PlayerID, s.Stack))
		}
		cmds = append(cmds, waitForServerMsg(m.events))

	case chatMsg:
		m.appendLog(fmt.Sprintf("[chat] %s: %s", msg.PlayerID, msg.Message))
		cmds = append(cmds, waitForServerMsg(m.events))

	case serverErrMsg:
		m.lastErr = msg.Message
		m.appendLog(errorStyle.Render(fmt.Sprintf("error (%s): %s", msg.Code, msg.Message)))
		cmds = append(cmds, waitForServerMsg(m.events))

	case connLostMsg:
		m.quitting = true
		m.appendLog(errorStyle.Render("connection closed"))
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.actionInput, cmd = m.actionInput.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// serverCmd wraps a no-return network call so its error (if any) ends the
// session as a connLostMsg instead of being silently ignored. The error
// text itself is not shown.
func serverCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return connLostMsg{err: err}
		}
		return nil
	}
}

func (m *model) handleInput(input string) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	var err error
	switch cmd {
	case "join":
		if len(args) != 1 {
			m.appendLog("usage: join <gameId>")
			return
		}
		err = m.client.JoinGame(args[0])
	case "ready":
		err = m.client.Ready()
	case "fold":
		err = m.client.Action(m.handNumber(), validator.Fold, 0)
	case "check":
		err = m.client.Action(m.handNumber(), validator.Check, 0)
	case "call":
		err = m.client.Action(m.handNumber(), validator.Call, 0)
	case "bet":
		err = m.actionWithAmount(validator.Bet, args)
	case "raise":
		err = m.actionWithAmount(validator.Raise, args)
	case "allin":
		err = m.client.Action(m.handNumber(), validator.AllIn, 0)
	case "reveal":
		err = m.client.Reveal()
	case "say":
		err = m.client.Chat(strings.Join(args, " "))
	case "leave":
		err = m.client.LeaveGame()
	case "games":
		err = m.client.ListGames()
	default:
		m.appendLog(fmt.Sprintf("unknown command %q", cmd))
		return
	}
	if err != nil {
		m.appendLog(errorStyle.Render(err.Error()))
	}
}

func (m *model) actionWithAmount(actionType validator.ActionType, args []string) error {
	if len(args) != 1 {
		m.appendLog(fmt.Sprintf("usage: %s <amount>", strings.ToLower(string(actionType))))
		return nil
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		m.appendLog("amount must be a number")
		return nil
	}
	return m.client.Action(m.handNumber(), actionType, amount)
}

// handNumber returns the hand the last known game state is on, or 0 before
// any state has arrived.
func (m *model) handNumber() int {
	if m.state == nil {
		return 0
	}
	return m.state.HandNumber
}

func formatEvent(evt engine.Event) string {
	switch {
	case evt.PlayerID != "" && evt.Action != nil:
		return fmt.Sprintf("[event] %s %s %d", evt.PlayerID, evt.Action.Type, evt.Action.Amount)
	case len(evt.Results) > 0:
		var parts []string
		for _, r := range evt.Results {
			parts = append(parts, fmt.Sprintf("%s: %s", r.PlayerID, r.HandDescription))
		}
		return "[event] showdown " + strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("[event] %s", evt.Type)
	}
}

func (m *model) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

func (m *model) View() string {
	if m.quitting {
		return "disconnected.\n"
	}
	if m.width == 0 {
		return "connecting...\n"
	}

	sidebar := m.renderSidebar()
	sidebarWidth := lipgloss.Width(sidebar) + 2

	logWidth := m.width - sidebarWidth - 2
	logHeight := m.height - 5
	if logHeight < 3 {
		logHeight = 3
	}
	m.logViewport.Width = logWidth
	m.logViewport.Height = logHeight

	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(logHeight).
		Render(m.logViewport.View())

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(logHeight).
		Render(sidebar)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)

	inputPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(m.width - 2).
		Render(m.actionInput.View())

	return lipgloss.JoinVertical(lipgloss.Top, topRow, inputPane)
}

func (m *model) renderSidebar() string {
	if m.state == nil {
		return infoStyle.Render("not seated yet")
	}

	var b strings.Builder
	b.WriteString(handInfoStyle.Render(fmt.Sprintf("hand #%d  %s", m.state.HandNumber, m.state.Stage)))
	b.WriteString("\n")
	b.WriteString(warningStyle.Render(fmt.Sprintf("pot %d  bet %d", m.state.Pot, m.state.CurrentBet)))
	b.WriteString("\n\n")
	b.WriteString(formatCards(m.state.CommunityCards))
	b.WriteString("\n\n")

	for _, p := range m.state.Players {
		var indicators []string
		if p.SeatIndex == m.state.DealerSeatIndex {
			indicators = append(indicators, "D")
		}
		if p.Folded {
			indicators = append(indicators, "FOLD")
		}
		if p.IsAllIn {
			indicators = append(indicators, "ALL-IN")
		}
		if !p.Connected {
			indicators = append(indicators, "DISC")
		}

		prefix := "  "
		if p.ID == m.state.ActivePlayerID {
			prefix = "> "
		}

		style := playerInfoStyle
		if p.Folded {
			style = infoStyle
		} else if p.ID == m.state.ActivePlayerID {
			style = successStyle
		}

		line := fmt.Sprintf("%s%s $%d", prefix, p.DisplayName, p.Stack)
		if len(indicators) > 0 {
			line += " [" + strings.Join(indicators, ",") + "]"
		}
		if len(p.HoleCards) > 0 {
			line += " " + formatCards(p.HoleCards)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if m.state.ActionRequest != nil && m.state.ActionRequest.PlayerID == m.playerID {
		b.WriteString("\n")
		var names []string
		for _, a := range m.state.ActionRequest.Actions {
			names = append(names, strings.ToLower(string(a.Type)))
		}
		b.WriteString(actionsStyle.Render("your turn: " + strings.Join(names, ", ")))
	}

	return b.String()
}

func formatCards[T fmt.Stringer](cards []T) string {
	if len(cards) == 0 {
		return infoStyle.Render("[ ]")
	}
	var parts []string
	for _, c := range cards {
		s := c.String()
		if strings.HasSuffix(s, "h") || strings.HasSuffix(s, "d") {
			parts = append(parts, redCardStyle.Render(s))
		} else {
			parts = append(parts, blackCardStyle.Render(s))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
