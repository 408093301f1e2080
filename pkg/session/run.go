// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"errors"
	"time"
)

// DefaultPollInterval is the I/O task's tick period.
const DefaultPollInterval = 100 * time.Millisecond

// EventKind identifies what an Event carries
type EventKind int

const (
	EventInbound EventKind = iota
	EventDisconnected
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventInbound:
		return "inbound"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by Run for each thing the I/O task observed.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Port    string
	Inbound Inbound
	Err     error
}

// Run drives the alive-check and poll cycle every interval until ctx is
// done, emitting events in the order they happened. Ticks that arrive
// while a cycle is still running are dropped. Run returns nil when ctx is
// cancelled.
func (s *Session) Run(ctx context.Context, interval time.Duration, events chan<- Event) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Debug().Dur("interval", interval).Msg("session I/O task started")
	defer s.logger.Debug().Msg("session I/O task stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if !s.tick(ctx, events) {
				return nil
			}
		}
	}
}

// tick runs one cycle. It returns false if ctx ended while emitting.
func (s *Session) tick(ctx context.Context, events chan<- Event) bool {
	port, alive, wasOpen := s.checkAlive()
	if !wasOpen {
		return true
	}
	if !alive {
		return emit(ctx, events, Event{Kind: EventDisconnected, Time: s.clock.Now(), Port: port})
	}

	in, ok, err := s.Poll()
	switch {
	case errors.Is(err, ErrConnectionLost):
		return emit(ctx, events, Event{Kind: EventDisconnected, Time: s.clock.Now(), Port: port, Err: err})
	case errors.Is(err, ErrNotConnected):
		// closed between the check and the poll
		return true
	case err != nil:
		return emit(ctx, events, Event{Kind: EventError, Time: s.clock.Now(), Port: port, Err: err})
	case ok:
		return emit(ctx, events, Event{Kind: EventInbound, Time: in.Time, Port: port, Inbound: in})
	}
	return true
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
