// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Thermoquad/tiroterm/pkg/tiro"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"golang.org/x/text/encoding/unicode"
)

// WriteFrame writes a hex frame. It returns as soon as the transport
// accepted the bytes; the protocol has no acknowledgment.
func (s *Session) WriteFrame(hexFrame string) error {
	_, err := s.Send(hexFrame)
	return err
}

// Send writes a hex frame and returns the echo to display.
func (s *Session) Send(hexFrame string) (Sent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return Sent{}, ErrNotConnected
	}

	data, err := tiro.DecodeHex(hexFrame)
	if err != nil {
		s.stats.RecordEncodeError()
		return Sent{}, err
	}

	if _, err := s.handle.Write(data); err != nil {
		s.stats.RecordWriteError()
		return Sent{}, fmt.Errorf("write to %s failed: %w", s.port, err)
	}
	s.stats.RecordSent(len(data))

	now := s.clock.Now()
	s.logger.Debug().Str("hex", hexFrame).Int("bytes", len(data)).Msg("frame sent")
	return Sent{Time: now, Stamp: tiro.FormatTimestamp(now), Hex: hexFrame}, nil
}

// Play sends the play frame for value.
func (s *Session) Play(value int, mode tiro.Mode) (Sent, error) {
	frame, err := tiro.PlayFrame(value, mode)
	if err != nil {
		s.stats.RecordEncodeError()
		return Sent{}, err
	}
	return s.Send(frame)
}

// Volume sends the volume frame.
func (s *Session) Volume(volume int, mode tiro.Mode) (Sent, error) {
	frame, err := tiro.VolumeFrame(volume, mode)
	if err != nil {
		s.stats.RecordEncodeError()
		return Sent{}, err
	}
	return s.Send(frame)
}

// Chain sends the chain's active prefix as one write. An empty chain is
// not sent.
func (s *Session) Chain(chain *tiro.ChainSlots, mode tiro.Mode) (Sent, error) {
	frame, err := chain.Frame(mode)
	if err != nil {
		s.stats.RecordEncodeError()
		return Sent{}, err
	}
	if frame == "" {
		return Sent{}, fmt.Errorf("%w: chain is empty", tiro.ErrParse)
	}
	return s.Send(frame)
}

// Raw sends user-typed hex after normalising it.
func (s *Session) Raw(raw string) (Sent, error) {
	frame, err := tiro.NormalizeHex(raw)
	if err != nil {
		s.stats.RecordEncodeError()
		return Sent{}, err
	}
	return s.Send(frame)
}

// Poll returns whatever bytes are waiting, decoded as text. It never
// blocks. ok is false when nothing arrived.
func (s *Session) Poll() (in Inbound, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return Inbound{}, false, ErrNotConnected
	}

	n, err := s.handle.Buffered()
	overflowed := false
	if errors.Is(err, transport.ErrBufferOverflow) {
		overflowed = true
		err = nil
		s.logger.Warn().Str("port", s.port).Msg("receive buffer overflowed, inbound bytes were dropped")
	}
	if err != nil {
		s.drop("link failed while polling", err)
		return Inbound{}, false, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	if n == 0 && !overflowed && len(s.carry) == 0 {
		return Inbound{}, false, nil
	}

	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := s.handle.Read(buf[read:])
		if err != nil {
			s.drop("link failed while reading", err)
			return Inbound{}, false, fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}
		if m == 0 {
			break
		}
		read += m
	}

	data := append(s.carry, buf[:read]...)
	complete, carry := data, []byte(nil)
	if read > 0 {
		complete, carry = splitIncompleteRune(data)
	}
	// an incomplete sequence is held for one poll only; with no new bytes
	// it is flushed as U+FFFD
	s.carry = carry

	if len(complete) == 0 && !overflowed {
		return Inbound{}, false, nil
	}

	now := s.clock.Now()
	s.stats.RecordReceived(len(complete), overflowed)

	return Inbound{
		Time:       now,
		Stamp:      tiro.FormatTimestamp(now),
		Text:       decodeLossy(complete),
		Raw:        complete,
		Overflowed: overflowed,
	}, true, nil
}

// CheckAlive re-enumerates ports and closes the session if its port is
// gone or enumeration fails. Enumeration faults are logged, not returned.
func (s *Session) CheckAlive() bool {
	_, alive, _ := s.checkAlive()
	return alive
}

// checkAlive does the alive check under a single lock, reporting the port
// it checked and whether the session was open when the check began.
func (s *Session) checkAlive() (port string, alive, wasOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return "", false, false
	}
	port = s.port

	ports, err := s.transport.Ports()
	if err != nil {
		s.drop("port enumeration failed", err)
		return port, false, true
	}
	if !transport.ContainsPort(ports, port) {
		s.drop("port disappeared", nil)
		return port, false, true
	}
	return port, true, true
}

// splitIncompleteRune holds back a UTF-8 sequence cut off at the end of
// data so the next poll can complete it.
func splitIncompleteRune(data []byte) (complete, carry []byte) {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax+1; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if !utf8.FullRune(data[i:]) {
			return data[:i], append([]byte(nil), data[i:]...)
		}
		break
	}
	return data, nil
}

// decodeLossy decodes UTF-8, replacing invalid sequences with U+FFFD.
func decodeLossy(data []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}
