// Package tui is the terminal front-end. It is a pure projector over the
// session store: it reads state the engine has fully applied and turns
// keystrokes into engine intents, nothing more.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"breakout/internal/command"
	"breakout/internal/engine"
	"breakout/internal/state"
)

type styles struct {
	header    lipgloss.Style
	sidebar   lipgloss.Style
	badge     lipgloss.Style
	flag      lipgloss.Style
	system    lipgloss.Style
	errLine   lipgloss.Style
	me        lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		sidebar:   lipgloss.NewStyle().Width(24).BorderStyle(lipgloss.NormalBorder()).BorderRight(true),
		badge:     lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1),
		flag:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		system:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		errLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		me:        lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
		errStatus: lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
	}
}

// updateMsg says the engine applied at least one state change.
type updateMsg struct{}

// SessionClosedMsg terminates the program; Err holds the channel's
// terminal condition.
type SessionClosedMsg struct {
	Err error
}

// Model is the bubbletea model for one session.
type Model struct {
	engine *engine.Engine
	role   state.Role

	input    textinput.Model
	viewport viewport.Model
	styles   styles

	scope    command.BroadcastScope
	viewRoom string // room pane override; empty follows the current room

	width  int
	height int
	ready  bool

	status   string
	closed   bool
	closeErr error
}

// New creates the model for a running engine.
func New(eng *engine.Engine, role state.Role) Model {
	input := textinput.New()
	input.Placeholder = "message, or /command (/w user hi, /scope main, /help)"
	input.Focus()
	input.CharLimit = 512

	return Model{
		engine: eng,
		role:   role,
		input:  input,
		styles: defaultStyles(),
		scope:  command.ScopeCurrentRoom,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

func (m Model) waitForUpdate() tea.Cmd {
	updates := m.engine.Updates()
	return func() tea.Msg {
		<-updates
		return updateMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := msg.Height - 6
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-26, logHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 26
			m.viewport.Height = logHeight
		}
		m.refresh()
		return m, nil

	case updateMsg:
		m.refresh()
		return m, m.waitForUpdate()

	case SessionClosedMsg:
		m.closed = true
		m.closeErr = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m.execute(line)
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// execute runs one parsed composer line against the engine. Rejected
// intents show up in the status line only; nothing is sent for them.
func (m Model) execute(line string) (tea.Model, tea.Cmd) {
	in := parseIntent(line)
	m.status = ""

	var err error
	switch in.kind {
	case intentSay:
		if target := m.engine.Store().ChatTarget(); target != "" {
			err = m.engine.Whisper(target, in.content)
		} else {
			err = m.engine.Broadcast(m.scope, in.content)
		}
	case intentWhisper:
		err = m.engine.Whisper(in.target, in.content)
	case intentScope:
		m.scope = in.scope
		m.status = "broadcast scope: " + string(in.scope)
	case intentOpenChat:
		m.engine.OpenChat(in.target)
	case intentCloseChat:
		m.engine.CloseChat()
		m.viewRoom = ""
	case intentShowRoom:
		m.viewRoom = in.room
	case intentCreateMain:
		err = m.engine.CreateMainRoom()
	case intentCreateBreakout:
		err = m.engine.CreateBreakout(in.room)
	case intentCloseBreakout:
		err = m.engine.CloseBreakout(in.room)
	case intentMoveStudent:
		err = m.engine.MoveToBreakout(in.target, in.room)
	case intentJoinBreakout:
		err = m.engine.JoinBreakout(in.room)
	case intentRequestHelp:
		err = m.engine.RequestHelp()
	case intentRequestBreakout:
		err = m.engine.RequestBreakout()
	case intentTogglePM:
		err = m.engine.TogglePrivateMessaging(in.enabled)
	case intentQuit:
		return m, tea.Quit
	case intentInvalid:
		m.status = "unrecognized input"
	}

	if err != nil {
		m.status = err.Error()
	}
	m.refresh()
	return m, nil
}

// refresh rebuilds the viewport content from the store.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	store := m.engine.Store()

	if target := store.ChatTarget(); target != "" {
		m.viewport.SetContent(m.renderWhispers(target))
	} else {
		room := m.viewRoom
		if room == "" {
			room = store.CurrentRoom()
		}
		m.viewport.SetContent(m.renderRoom(room))
	}
	m.viewport.GotoBottom()
}

func (m *Model) renderRoom(room string) string {
	store := m.engine.Store()
	var b strings.Builder
	for _, msg := range store.RoomLog(room) {
		b.WriteString(m.renderLine(msg))
		b.WriteByte('\n')
	}
	// Global broadcasts also accumulate in their own pane; show them
	// under the room log the way the original client did.
	if room == store.CurrentRoom() {
		for _, msg := range store.RoomLog(state.GlobalLogID) {
			b.WriteString(m.renderLine(msg))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m *Model) renderWhispers(target string) string {
	store := m.engine.Store()
	var b strings.Builder
	for _, msg := range store.Whispers(target) {
		b.WriteString(m.renderLine(msg))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Model) renderLine(msg state.Message) string {
	name := msg.From
	if name == m.engine.Store().SelfID() || name == state.LocalEchoSender {
		name = m.styles.me.Render("You")
	}
	line := fmt.Sprintf("%s: %s", name, msg.Content)
	switch msg.Scope {
	case state.ScopeSystem:
		return m.styles.system.Render(line)
	case state.ScopeError:
		return m.styles.errLine.Render("ERROR: " + msg.Content)
	case state.ScopeGlobal:
		return m.styles.flag.Render("[all] ") + line
	default:
		return line
	}
}

func (m Model) renderSidebar() string {
	store := m.engine.Store()
	var b strings.Builder

	b.WriteString(m.styles.header.Render("Participants"))
	b.WriteByte('\n')
	for _, p := range store.Participants() {
		if p.UserID == store.SelfID() {
			continue
		}
		var markers []string
		if p.HelpRequested {
			markers = append(markers, m.styles.flag.Render("hand"))
		}
		if p.BreakoutRequested {
			markers = append(markers, m.styles.flag.Render("brk"))
		}
		line := p.UserID
		if len(markers) > 0 {
			line += " " + strings.Join(markers, " ")
		}
		if p.UnreadCount > 0 {
			line += " " + m.styles.badge.Render(fmt.Sprintf("%d", p.UnreadCount))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.styles.header.Render("Rooms"))
	b.WriteByte('\n')
	for _, room := range store.Rooms() {
		marker := "  "
		if room == store.CurrentRoom() {
			marker = "> "
		}
		b.WriteString(marker + room + "\n")
	}

	if !store.PrivateMessagingEnabled() {
		b.WriteByte('\n')
		b.WriteString(m.styles.system.Render("whispers disabled"))
	}
	return m.styles.sidebar.Render(b.String())
}

func (m Model) View() string {
	if m.closed {
		if m.closeErr != nil {
			return fmt.Sprintf("session ended: %v\n", m.closeErr)
		}
		return "session ended\n"
	}
	if !m.ready {
		return "connecting..."
	}

	store := m.engine.Store()
	if m.role == state.RoleStudent && !store.InstructorOnline() {
		return m.styles.header.Render("Waiting for the instructor to connect...") + "\n"
	}

	title := fmt.Sprintf("%s (%s)  room: %s  scope: %s",
		string(m.role), store.SelfID(), store.CurrentRoom(), m.scope)
	if target := store.ChatTarget(); target != "" {
		title += "  chat: " + target
	}
	if m.role == state.RoleStudent {
		if store.HelpRequested() {
			title += "  [help requested]"
		}
		if store.BreakoutRequested() {
			title += "  [breakout requested]"
		}
	}

	status := m.status
	statusStyle := m.styles.status
	if strings.Contains(status, "cannot") || strings.Contains(status, "disabled") {
		statusStyle = m.styles.errStatus
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())
	return strings.Join([]string{
		m.styles.header.Render(title),
		body,
		m.input.View(),
		statusStyle.Render(status),
	}, "\n")
}
