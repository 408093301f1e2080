// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/config"
	"github.com/Thermoquad/tiroterm/pkg/history"
	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useLoopback points the command globals at an echoing loopback device and
// restores them when the test ends.
func useLoopback(t *testing.T) {
	t.Helper()

	prevActive, prevLoopback, prevListen := active, loopbackMode, listenFor
	prevFs, prevName := appFs, chainName
	t.Cleanup(func() {
		active, loopbackMode, listenFor = prevActive, prevLoopback, prevListen
		appFs, chainName = prevFs, prevName
	})

	loopbackMode = true
	active = settings{
		values:   config.Defaults(),
		line:     transport.DefaultLineConfig(),
		mode:     tiro.Mode16,
		interval: 10 * time.Millisecond,
	}
}

func TestSendOnce_EchoThenReply(t *testing.T) {
	useLoopback(t)
	listenFor = 300 * time.Millisecond

	var out bytes.Buffer
	err := sendOnce(&out, func(s *session.Session) (session.Sent, error) {
		return s.Raw("4f 4B")
	})
	require.NoError(t, err)

	text := out.String()
	sentAt := strings.Index(text, " sent: 4f4b\n")
	receivedAt := strings.Index(text, " received: OK\n")
	require.GreaterOrEqual(t, sentAt, 0, text)
	require.GreaterOrEqual(t, receivedAt, 0, text)
	assert.Less(t, sentAt, receivedAt, "echo is printed before the reply")
	assert.Contains(t, text, "[Loopback (echo)]")
}

func TestSendOnce_NoListenPrintsEchoOnly(t *testing.T) {
	useLoopback(t)

	var out bytes.Buffer
	err := sendOnce(&out, func(s *session.Session) (session.Sent, error) {
		return s.Play(10, active.mode)
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), " sent: fff3000a\n")
	assert.NotContains(t, out.String(), "received:")
}

func TestPrintEvent(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 31, 15, 0, time.UTC)

	var out bytes.Buffer
	gone := printEvent(&out, session.Event{
		Kind:    session.EventInbound,
		Inbound: session.Inbound{Time: at, Stamp: "09:31:15", Text: "OK", Overflowed: true},
	})
	assert.False(t, gone)
	assert.Equal(t, "09:31:15 [OVERFLOW] receive buffer overflowed, bytes were dropped\n09:31:15 received: OK\n", out.String())

	out.Reset()
	gone = printEvent(&out, session.Event{Kind: session.EventDisconnected, Time: at, Port: "/dev/ttyUSB0"})
	assert.True(t, gone)
	assert.Equal(t, "09:31:15 disconnected: /dev/ttyUSB0\n", out.String())
}

func TestChainSend_ByName(t *testing.T) {
	useLoopback(t)

	fs := afero.NewMemMapFs()
	appFs = fs
	t.Setenv(config.CfgEnv, "/etc/tiroterm/tiroterm.toml")

	store, err := history.Load(fs, "/data/h.json", history.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, store.SaveNew("greeting", []string{"1", "2", "300"}))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"chain", "send", "--name", "greeting", "--loopback", "--history", "/data/h.json"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), " sent: fff30001fff30002fff3012c\n")

	rootCmd.SetArgs([]string{"chain", "send", "--name", "missing", "--loopback", "--history", "/data/h.json"})
	require.ErrorIs(t, rootCmd.Execute(), history.ErrNotFound)
}

func TestResolveChain_NameAndValuesConflict(t *testing.T) {
	useLoopback(t)
	chainName = "greeting"

	_, err := resolveChain([]string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestBridgePassword(t *testing.T) {
	pipeWith := func(t *testing.T, input string) *os.File {
		t.Helper()
		r, w, err := os.Pipe()
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		_, err = w.WriteString(input)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return r
	}

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(PasswordEnv, "from-env")
		var prompt bytes.Buffer
		pw, err := bridgePassword(pipeWith(t, "typed\n"), &prompt, "admin")
		require.NoError(t, err)
		assert.Equal(t, "from-env", pw)
		assert.Empty(t, prompt.String())
	})

	t.Run("reads a line when not a terminal", func(t *testing.T) {
		t.Setenv(PasswordEnv, "")
		var prompt bytes.Buffer
		pw, err := bridgePassword(pipeWith(t, "hunter2\r\nextra\n"), &prompt, "admin")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", pw)
		assert.Equal(t, "Password for admin: \n", prompt.String())
	})

	t.Run("unterminated line", func(t *testing.T) {
		t.Setenv(PasswordEnv, "")
		pw, err := bridgePassword(pipeWith(t, "s3cret"), io.Discard, "admin")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", pw)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Setenv(PasswordEnv, "")
		_, err := bridgePassword(pipeWith(t, ""), io.Discard, "admin")
		require.Error(t, err)
		assert.Contains(t, err.Error(), PasswordEnv)
	})
}
