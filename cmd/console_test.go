// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/history"
	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T) (*consoleModel, *transport.Loopback) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	lb := transport.NewLoopback(loopbackPort)
	s := session.New(lb, session.WithClock(clock), session.WithLogger(zerolog.Nop()))
	store, err := history.Load(afero.NewMemMapFs(), "/data/command_history.json",
		history.WithClock(clock), history.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	m := newConsoleModel(consoleDeps{
		session: s,
		store:   store,
		clock:   clock,
		port:    loopbackPort,
		line:    transport.DefaultLineConfig(),
		mode:    tiro.Mode16,
	})
	m.runLine("connect")
	require.Equal(t, session.StateOpen, s.State())
	return m, lb
}

func lastLog(m *consoleModel) logEntry {
	return m.log[len(m.log)-1]
}

func TestConsole_PlayAndMode(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("play 10")
	assert.Equal(t, "09:30:00 sent: fff3000a", lastLog(m).message)
	assert.Equal(t, logSent, lastLog(m).kind)

	m.runLine("mode 8")
	assert.Equal(t, tiro.Mode8, m.mode)

	m.runLine("play 10")
	assert.Equal(t, "09:30:00 sent: f30a", lastLog(m).message)

	assert.Equal(t, []byte{0xFF, 0xF3, 0x00, 0x0A, 0xF3, 0x0A}, lb.Written())
}

func TestConsole_StepLastValue(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("-")
	assert.Equal(t, logError, lastLog(m).kind, "nothing to step yet")

	m.runLine("vol 14")
	m.runLine("+")
	m.runLine("+")
	assert.Equal(t, 15, m.volume, "volume clamps at 15")
	assert.Equal(t, "09:30:00 sent: ffef", lastLog(m).message)

	m.runLine("play 1")
	m.runLine("-")
	m.runLine("-")
	assert.Equal(t, 0, m.lastValue, "play value clamps at 0")

	assert.Equal(t, []byte{
		0xFF, 0xEE,
		0xFF, 0xEF,
		0xFF, 0xEF,
		0xFF, 0xF3, 0x00, 0x01,
		0xFF, 0xF3, 0x00, 0x00,
		0xFF, 0xF3, 0x00, 0x00,
	}, lb.Written())
}

func TestConsole_RangeErrorWritesNothing(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("mode 8")
	m.runLine("play 256")
	assert.Equal(t, logError, lastLog(m).kind)
	assert.Contains(t, lastLog(m).message, "out of range")

	m.runLine("vol 16")
	assert.Equal(t, logError, lastLog(m).kind)

	m.runLine("play ten")
	assert.Equal(t, logError, lastLog(m).kind)

	assert.Empty(t, lb.Written())
}

func TestConsole_ChainSaveLoadUpdate(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("chain 1 2 3")
	assert.Equal(t, "09:30:00 sent: fff30001fff30002fff30003", lastLog(m).message)

	m.runLine("save greeting")
	m.runLine("save")
	assert.Equal(t, []string{"greeting", "chain 2"}, m.store.Names())

	m.runLine("save greeting")
	assert.Equal(t, logError, lastLog(m).kind, "duplicate name")

	m.runLine("clear")
	assert.Equal(t, 0, m.chain.Len())

	m.runLine("load greeting")
	assert.Equal(t, "1 2 3", m.chain.Command())

	m.runLine("set 4 9")
	m.runLine("update greeting")
	rec, err := m.store.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 9", rec.Command)

	m.runLine("update missing")
	assert.Equal(t, logError, lastLog(m).kind)

	m.runLine("clear 2")
	assert.Equal(t, 1, m.chain.Len(), "a gap ends the active prefix")

	m.runLine("chain")
	assert.Equal(t, "09:30:00 sent: fff30001", lastLog(m).message)

	assert.Len(t, lb.Written(), 12+4)
}

func TestConsole_EmptyChainNotSent(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("chain")
	assert.Equal(t, logError, lastLog(m).kind)

	m.runLine("save")
	assert.Equal(t, logError, lastLog(m).kind)
	assert.Equal(t, 0, m.store.Len())
	assert.Empty(t, lb.Written())
}

func TestConsole_Hex(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("hex FF F3 00 0A")
	assert.Equal(t, "09:30:00 sent: fff3000a", lastLog(m).message)

	m.runLine("hex fff")
	assert.Equal(t, logError, lastLog(m).kind)

	assert.Equal(t, []byte{0xFF, 0xF3, 0x00, 0x0A}, lb.Written())
}

func TestConsole_DisconnectAndReconnect(t *testing.T) {
	m, lb := newTestConsole(t)

	m.runLine("disconnect")
	assert.Equal(t, session.StateClosed, m.session.State())

	m.runLine("play 1")
	assert.Equal(t, logError, lastLog(m).kind)
	assert.Contains(t, lastLog(m).message, "not connected")

	m.runLine("disconnect")
	assert.Equal(t, logError, lastLog(m).kind)

	m.runLine("connect /dev/missing")
	assert.Equal(t, logError, lastLog(m).kind)
	assert.Contains(t, lastLog(m).message, "connection failed")
	assert.Equal(t, session.StateClosed, m.session.State())

	m.runLine("connect")
	assert.Equal(t, session.StateOpen, m.session.State())
	m.runLine("play 1")
	assert.Equal(t, []byte{0xFF, 0xF3, 0x00, 0x01}, lb.Written())
}

func TestConsole_SessionEvents(t *testing.T) {
	m, _ := newTestConsole(t)
	at := time.Date(2025, 6, 1, 9, 31, 15, 0, time.UTC)

	m.handleSessionEvent(session.Event{
		Kind:    session.EventInbound,
		Time:    at,
		Inbound: session.Inbound{Time: at, Stamp: "09:31:15", Text: "OK\r\n", Overflowed: true},
	})
	require.Len(t, m.log, 3)
	assert.Equal(t, logError, m.log[1].kind)
	assert.Equal(t, "09:31:15 received: OK", m.log[2].message)

	m.handleSessionEvent(session.Event{Kind: session.EventDisconnected, Time: at, Port: loopbackPort})
	assert.Equal(t, "09:31:15 disconnected: loopback", lastLog(m).message)
}

func TestConsole_StatsAndReset(t *testing.T) {
	m, _ := newTestConsole(t)

	m.runLine("play 1")
	m.runLine("play 2")
	assert.Equal(t, uint64(2), m.session.Statistics().Snapshot().FramesSent)
	assert.Contains(t, m.View(), "Last:")

	before := len(m.log)
	m.runLine("stats")
	require.Greater(t, len(m.log), before)
	assert.Contains(t, m.log[before].message, "=== Statistics")
	var found bool
	for _, e := range m.log[before:] {
		if strings.Contains(e.message, "Frames Sent:") && strings.Contains(e.message, "2 (8 bytes)") {
			found = true
		}
	}
	assert.True(t, found, "stats output lists frames sent")

	m.runLine("stats reset")
	assert.Equal(t, "09:30:00 statistics reset", lastLog(m).message)
	snap := m.session.Statistics().Snapshot()
	assert.Zero(t, snap.FramesSent)
	assert.Zero(t, snap.BytesSent)

	m.runLine("stats everything")
	assert.Equal(t, logError, lastLog(m).kind)
	assert.ErrorIs(t, m.cmdStats([]string{"everything"}), errUsage)
}

func TestConsole_UnknownAndQuit(t *testing.T) {
	m, _ := newTestConsole(t)

	assert.Nil(t, m.runLine("   "))

	m.runLine("dance")
	assert.Equal(t, logError, lastLog(m).kind)
	assert.True(t, strings.Contains(lastLog(m).message, "unknown command"))

	cmd := m.runLine("quit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.quitting)
}

func TestConsole_LogIsBounded(t *testing.T) {
	m, _ := newTestConsole(t)
	m.maxLogEntries = 5

	for i := 0; i < 20; i++ {
		m.runLine("play 1")
	}
	assert.Len(t, m.log, 5)
}

func TestConsole_EnterKeyRunsLine(t *testing.T) {
	m, lb := newTestConsole(t)

	m.input.SetValue("play 7")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := next.(consoleModel)

	assert.Empty(t, updated.input.Value())
	assert.Equal(t, []string{"play 7"}, updated.lines)
	assert.Equal(t, []byte{0xFF, 0xF3, 0x00, 0x07}, lb.Written())
	assert.Contains(t, updated.View(), "TIRO CONSOLE")
}

func TestParseChain(t *testing.T) {
	chain, err := parseChain([]string{"5", "6"})
	require.NoError(t, err)
	assert.Equal(t, "5 6", chain.Command())

	_, err = parseChain(nil)
	require.ErrorIs(t, err, tiro.ErrParse)

	_, err = parseChain(strings.Fields(strings.Repeat("1 ", tiro.ChainCapacity+1)))
	require.ErrorIs(t, err, tiro.ErrRange)

	_, err = parseChain([]string{"1", "x"})
	require.ErrorIs(t, err, tiro.ErrParse)
}

func TestNormaliseModeFlag(t *testing.T) {
	assert.Equal(t, "8", normaliseModeFlag("TIRO_8bit"))
	assert.Equal(t, "16", normaliseModeFlag("16bit"))
	assert.Equal(t, "12", normaliseModeFlag("12"))
}
