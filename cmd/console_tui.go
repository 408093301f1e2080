// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/history"
	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type logKind int

const (
	logInfo logKind = iota
	logSent
	logReceived
	logError
)

// logEntry is one line of the console's receive log
type logEntry struct {
	timestamp time.Time
	message   string
	kind      logKind
}

// lastSend remembers what +/- steps
type lastSend int

const (
	lastNone lastSend = iota
	lastPlay
	lastVolume
)

// consoleDeps are the collaborators a console model drives
type consoleDeps struct {
	session *session.Session
	store   *history.Store
	clock   clockwork.Clock
	port    string
	line    transport.LineConfig
	mode    tiro.Mode
}

// consoleModel is the Bubble Tea model for the interactive console
type consoleModel struct {
	session *session.Session
	store   *history.Store
	clock   clockwork.Clock

	// Connection defaults for "connect" without arguments
	port string
	line transport.LineConfig

	// Protocol state
	mode      tiro.Mode
	chain     *tiro.ChainSlots
	last      lastSend
	lastValue int
	volume    int
	volumeSet bool

	// Log
	log           []logEntry
	maxLogEntries int
	logView       viewport.Model

	// Input
	input      textinput.Model
	lines      []string
	lineCursor int
	width      int
	height     int
	quitting   bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

// sessionEventMsg carries a session I/O event into the program
type sessionEventMsg session.Event

type consoleTickMsg time.Time

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newConsoleModel(deps consoleDeps) *consoleModel {
	ti := textinput.New()
	ti.Placeholder = "play 10 | vol 5 | chain 1 2 3 | help"
	ti.Prompt = "> "
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	clock := deps.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &consoleModel{
		session:       deps.session,
		store:         deps.store,
		clock:         clock,
		port:          deps.port,
		line:          deps.line,
		mode:          deps.mode,
		chain:         tiro.NewChainSlots(),
		log:           make([]logEntry, 0),
		maxLogEntries: 500,
		logView:       viewport.New(76, 10),
		input:         ti,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, consoleTickCmd())
}

func consoleTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return consoleTickMsg(t)
	})
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			line := m.input.Value()
			m.input.Reset()
			m.rememberLine(line)
			cmd := m.runLine(line)
			m.refreshLog()
			return m, cmd

		case "up":
			m.recallLine(-1)
			return m, nil

		case "down":
			m.recallLine(1)
			return m, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case consoleTickMsg:
		m.session.Statistics().CalculateRates()
		return m, consoleTickCmd()

	case sessionEventMsg:
		m.handleSessionEvent(session.Event(msg))
		m.refreshLog()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("TIRO CONSOLE"))
	s.WriteString(" ")
	connStatus := warningStyle.Render("DISCONNECTED")
	if m.session.State() == session.StateOpen {
		connStatus = statsValueStyle.Render(connectionInfo(m.session))
	}
	s.WriteString(headerStyle.Render("| ") + connStatus + headerStyle.Render(" | Esc=quit PgUp/PgDn=scroll"))
	s.WriteString("\n")

	volume := "?"
	if m.volumeSet {
		volume = fmt.Sprintf("%d", m.volume)
	}
	snap := m.session.Statistics().Snapshot()
	lastActivity := "-"
	if snap.FramesSent+snap.ReceiveEvents > 0 {
		lastActivity = tiro.FormatTimestamp(snap.LastUpdateTime)
	}
	s.WriteString(fmt.Sprintf(" %s %s  %s %s  %s %s  %s %s  %s %s\n\n",
		statsLabelStyle.Render("Mode:"), statsValueStyle.Render(m.mode.String()),
		statsLabelStyle.Render("Volume:"), statsValueStyle.Render(volume),
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.FramesSent)),
		statsLabelStyle.Render("Received:"), statsValueStyle.Render(fmt.Sprintf("%d bytes", snap.BytesReceived)),
		statsLabelStyle.Render("Last:"), statsValueStyle.Render(lastActivity),
	))

	// Chain slots
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.renderChain(statsLabelStyle, headerStyle, statsValueStyle)))
	s.WriteString("\n")

	// Receive log
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.logView.View()))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("play vol + - hex chain set clear save update load list mode connect disconnect ports stats help"))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

const chainColumns = 10

func (m consoleModel) renderChain(labelStyle, emptyStyle, valueStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render(fmt.Sprintf("CHAIN %d/%d", m.chain.Len(), tiro.ChainCapacity)))
	s.WriteString("\n")

	for i := 1; i <= tiro.ChainCapacity; i++ {
		cell := emptyStyle.Render(fmt.Sprintf("%2d:%-5s", i, "-"))
		if v, ok := m.chain.Slot(i); ok {
			cell = valueStyle.Render(fmt.Sprintf("%2d:%-5d", i, v))
		}
		s.WriteString(cell)
		if i%chainColumns == 0 {
			if i < tiro.ChainCapacity {
				s.WriteString("\n")
			}
		} else {
			s.WriteString(" ")
		}
	}
	return s.String()
}

func (m consoleModel) renderLog() string {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	sentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	receivedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	if len(m.log) == 0 {
		return headerStyle.Render("  (nothing sent or received yet)")
	}

	lines := make([]string, 0, len(m.log))
	for _, entry := range m.log {
		style := headerStyle
		switch entry.kind {
		case logSent:
			style = sentStyle
		case logReceived:
			style = receivedStyle
		case logError:
			style = errorStyle
		}
		lines = append(lines, style.Render(entry.message))
	}
	return strings.Join(lines, "\n")
}

// refreshLog re-renders the log and follows the newest line
func (m *consoleModel) refreshLog() {
	m.logView.SetContent(m.renderLog())
	m.logView.GotoBottom()
}

func (m *consoleModel) resize() {
	// header(3) + chain box(7) + log border(2) + input(1) + help(1)
	logHeight := m.height - 14
	if logHeight < 3 {
		logHeight = 3
	}
	m.logView.Width = m.width - 8
	m.logView.Height = logHeight
	m.input.Width = m.width - 4
	m.refreshLog()
}

//////////////////////////////////////////////////////////////
// Log and input helpers
//////////////////////////////////////////////////////////////

func (m *consoleModel) addLogEntry(kind logKind, message string) {
	m.log = append(m.log, logEntry{
		timestamp: m.clock.Now(),
		message:   message,
		kind:      kind,
	})

	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m *consoleModel) addInfo(format string, args ...any) {
	now := tiro.FormatTimestamp(m.clock.Now())
	m.addLogEntry(logInfo, now+" "+fmt.Sprintf(format, args...))
}

func (m *consoleModel) addError(err error) {
	now := tiro.FormatTimestamp(m.clock.Now())
	m.addLogEntry(logError, fmt.Sprintf("%s error: %v", now, err))
}

func (m *consoleModel) handleSessionEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventInbound:
		if ev.Inbound.Overflowed {
			m.addLogEntry(logError, ev.Inbound.Stamp+" receive buffer overflowed, bytes were dropped")
		}
		text := strings.TrimRight(ev.Inbound.Text, "\r\n")
		if text != "" {
			m.addLogEntry(logReceived, tiro.FormatReceived(ev.Inbound.Time, text))
		}
	case session.EventDisconnected:
		m.addLogEntry(logError, fmt.Sprintf("%s disconnected: %s", tiro.FormatTimestamp(ev.Time), ev.Port))
	case session.EventError:
		m.addLogEntry(logError, fmt.Sprintf("%s error: %v", tiro.FormatTimestamp(ev.Time), ev.Err))
	}
}

func (m *consoleModel) rememberLine(line string) {
	if strings.TrimSpace(line) != "" {
		m.lines = append(m.lines, line)
	}
	m.lineCursor = len(m.lines)
}

func (m *consoleModel) recallLine(delta int) {
	if len(m.lines) == 0 {
		return
	}
	m.lineCursor += delta
	if m.lineCursor < 0 {
		m.lineCursor = 0
	}
	if m.lineCursor >= len(m.lines) {
		m.lineCursor = len(m.lines)
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.lines[m.lineCursor])
	m.input.CursorEnd()
}
