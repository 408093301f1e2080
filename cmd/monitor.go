// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var monitorHexDump bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display received text with timestamps",
	Long: `Continuously poll the module and print whatever it sends, one line per
poll, prefixed with the HH:MM:SS time it was read.

The port is re-checked on every poll; unplugging the device ends the
monitor. Statistics are printed on exit.

Supports serial, WebSocket and loopback connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorHexDump, "hex", false, "Also print a hex dump of each read")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s, connInfo, err := OpenSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tiroterm - Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Mode: %s\n", active.mode)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	events := make(chan session.Event, 64)

	g.Go(func() error {
		defer close(events)
		return s.Run(ctx, active.interval, events)
	})

	g.Go(func() error {
		for ev := range events {
			if monitorHexDump && ev.Kind == session.EventInbound && len(ev.Inbound.Raw) > 0 {
				fmt.Fprintln(out, tiro.FormatHexDump(ev.Inbound.Raw))
			}
			if printEvent(out, ev) {
				stop()
			}
		}
		return nil
	})

	err = g.Wait()

	fmt.Fprintf(out, "\n%s", s.Statistics())
	return err
}
