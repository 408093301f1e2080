// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/spf13/cobra"
)

var listenFor time.Duration

var playCmd = &cobra.Command{
	Use:   "play <value>",
	Short: "Play one voice segment",
	Long: `Encode a play command for the given segment number and send it.

In 16-bit mode the value must be 0-65535, in 8-bit mode 0-255.

Examples:
  tiroterm play 10 --port /dev/ttyUSB0          # sends fff3000a
  tiroterm play 10 --port /dev/ttyUSB0 --mode 8 # sends f30a`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := tiro.ParseValue(args[0])
		if err != nil {
			return err
		}
		return sendOnce(cmd.OutOrStdout(), func(s *session.Session) (session.Sent, error) {
			return s.Play(value, active.mode)
		})
	},
}

var volumeCmd = &cobra.Command{
	Use:     "volume <level>",
	Aliases: []string{"vol"},
	Short:   "Set the module volume (0-15)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := tiro.ParseValue(args[0])
		if err != nil {
			return err
		}
		return sendOnce(cmd.OutOrStdout(), func(s *session.Session) (session.Sent, error) {
			return s.Volume(level, active.mode)
		})
	},
}

var hexCmd = &cobra.Command{
	Use:   "hex <bytes>...",
	Short: "Send raw hex bytes",
	Long: `Send hex bytes as typed. Whitespace between digits is ignored and the
digits may be in either case.

Example:
  tiroterm hex FF F3 00 0A`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.Join(args, " ")
		if _, err := tiro.NormalizeHex(raw); err != nil {
			return err
		}
		return sendOnce(cmd.OutOrStdout(), func(s *session.Session) (session.Sent, error) {
			return s.Raw(raw)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{playCmd, volumeCmd, hexCmd} {
		addListenFlag(c)
		rootCmd.AddCommand(c)
	}
}

func addListenFlag(c *cobra.Command) {
	c.Flags().DurationVar(&listenFor, "listen", 0, "Print replies for this long after sending (e.g. 500ms)")
}

// sendOnce opens the session, performs one send, writes the echo to out and
// optionally listens for replies before closing.
func sendOnce(out io.Writer, send func(*session.Session) (session.Sent, error)) error {
	s, connInfo, err := OpenSession()
	if err != nil {
		return err
	}
	defer s.Close()

	sent, err := send(s)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, sent.String())
	fmt.Fprintf(out, "         %s  [%s]\n", tiro.DescribeFrame(sent.Hex, active.mode), connInfo)

	if listenFor > 0 {
		return listen(out, s, listenFor)
	}
	return nil
}

// listen prints inbound text until d elapses or the link drops
func listen(out io.Writer, s *session.Session, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	events := make(chan session.Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, active.interval, events)
	}()

	for {
		select {
		case ev := <-events:
			if printEvent(out, ev) {
				cancel()
				return <-done
			}
		case err := <-done:
			for {
				select {
				case ev := <-events:
					printEvent(out, ev)
				default:
					return err
				}
			}
		}
	}
}

// printEvent writes one session event to out. It returns true when the
// session is gone.
func printEvent(out io.Writer, ev session.Event) bool {
	switch ev.Kind {
	case session.EventInbound:
		if ev.Inbound.Overflowed {
			fmt.Fprintf(out, "%s [OVERFLOW] receive buffer overflowed, bytes were dropped\n", ev.Inbound.Stamp)
		}
		if ev.Inbound.Text != "" {
			fmt.Fprintln(out, ev.Inbound.String())
		}
	case session.EventDisconnected:
		fmt.Fprintf(out, "%s disconnected: %s\n", tiro.FormatTimestamp(ev.Time), ev.Port)
		return true
	case session.EventError:
		fmt.Fprintf(out, "%s [ERROR] %v\n", tiro.FormatTimestamp(ev.Time), ev.Err)
	}
	return false
}
