// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session owns the connection to a TIRO module: it opens and closes
// the transport, writes encoded frames, and polls inbound bytes as
// timestamped text.
//
// A Session serialises all transport access behind one mutex, so writes
// never overlap the alive-check and poll cycle. Close may be called from
// any goroutine.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyOpen    = errors.New("session already open")
	ErrConnection     = errors.New("connection failed")
	ErrConnectionLost = errors.New("connection lost")
)

// State of a session
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Sent echoes a successful write.
type Sent struct {
	Time  time.Time
	Stamp string
	Hex   string
}

func (s Sent) String() string {
	return tiro.FormatSent(s.Time, s.Hex)
}

// Inbound is decoded text read in one poll.
type Inbound struct {
	Time       time.Time
	Stamp      string
	Text       string
	Raw        []byte
	Overflowed bool
}

func (in Inbound) String() string {
	return tiro.FormatReceived(in.Time, in.Text)
}

// Session is a single connection to a module.
type Session struct {
	transport transport.Transport
	clock     clockwork.Clock
	logger    zerolog.Logger
	stats     *tiro.Statistics

	mu     sync.Mutex
	handle transport.Handle
	port   string
	line   transport.LineConfig
	carry  []byte
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for timestamps and the polling ticker.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the session's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithStatistics sets the counters the session updates.
func WithStatistics(st *tiro.Statistics) Option {
	return func(s *Session) { s.stats = st }
}

// New creates a closed session over t.
func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		transport: t,
		clock:     clockwork.NewRealClock(),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = tiro.NewStatistics()
	}
	return s
}

// Statistics returns the session's counters.
func (s *Session) Statistics() *tiro.Statistics {
	return s.stats
}

// Ports enumerates the transport's endpoints.
func (s *Session) Ports() ([]transport.PortDescriptor, error) {
	return s.transport.Ports()
}

// State reports whether the session is open.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return StateOpen
	}
	return StateClosed
}

// Port returns the open port name, or "" when closed.
func (s *Session) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ""
	}
	return s.port
}

// LineConfig returns the parameters the session was opened with.
func (s *Session) LineConfig() transport.LineConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line
}

// Open connects to port. On failure the session stays closed and the
// returned error wraps ErrConnection.
func (s *Session) Open(port string, cfg transport.LineConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, s.port)
	}

	h, err := s.transport.Open(port, cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, port, err)
	}

	s.handle = h
	s.port = port
	s.line = cfg
	s.carry = nil

	s.logger.Info().Str("port", port).Stringer("line", cfg).Msg("connected")
	return nil
}

// Close disconnects. Closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil
	}
	err := s.handle.Close()
	s.handle = nil
	s.discardCarry()
	s.logger.Info().Str("port", s.port).Msg("disconnected")
	return err
}

// drop closes the handle after the link failed. Callers hold s.mu.
func (s *Session) drop(reason string, cause error) {
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("close after link failure")
	}
	s.handle = nil
	s.discardCarry()
	s.stats.RecordDisconnect()
	s.logger.Warn().Err(cause).Str("port", s.port).Msg(reason)
}

// discardCarry drops a held incomplete UTF-8 sequence when the link goes
// away, logging it. Callers hold s.mu.
func (s *Session) discardCarry() {
	if len(s.carry) > 0 {
		s.logger.Warn().
			Str("port", s.port).
			Hex("bytes", s.carry).
			Msg("discarding incomplete UTF-8 sequence at end of stream")
	}
	s.carry = nil
}
