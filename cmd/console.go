// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/tiroterm/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive TUI for driving a TIRO module",
	Long: `Drive a TIRO module from an interactive terminal UI.

Features:
  - Play, volume and raw hex commands, with +/- stepping of the last value
  - A 40-slot chain that is sent as one write
  - Saving, updating and loading named chains from the history file
  - Switching between 8-bit and 16-bit protocol mode
  - Connecting and disconnecting without leaving the console
  - A timestamped log of everything sent and received

If no port is configured the console starts disconnected; use
"connect <port>" (and "ports" to list them).

Supports serial, WebSocket and loopback connections.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal; keep log lines out of it
	logger := log.Logger
	log.Logger = zerolog.Nop()
	defer func() { log.Logger = logger }()

	s, port, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := openHistory()
	if err != nil {
		return err
	}

	m := newConsoleModel(consoleDeps{
		session: s,
		store:   store,
		clock:   clockwork.NewRealClock(),
		port:    port,
		line:    active.line,
		mode:    active.mode,
	})
	if port != "" {
		m.runLine("connect")
	} else {
		m.addInfo("not connected, use: connect <port>")
	}
	m.refreshLog()

	p := tea.NewProgram(*m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	events := make(chan session.Event, 64)

	g.Go(func() error {
		defer close(events)
		return s.Run(ctx, active.interval, events)
	})

	// Forward session events into the program
	g.Go(func() error {
		for ev := range events {
			p.Send(sessionEventMsg(ev))
		}
		return nil
	})

	_, runErr := p.Run()
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
