// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package tiro implements the TIRO voice-module command protocol.
//
// TIRO commands are short hex frames written to the module over a UART.
// Two addressing variants exist: the 8-bit variant carries a two-digit
// value field and the 16-bit variant a four-digit one. This package builds
// play, volume and chained-play frames, validates raw hex, and holds the
// 40-slot chain used for chained playback.
package tiro

import (
	"fmt"
	"strings"
)

// Mode selects the protocol variant.
type Mode int

const (
	Mode8 Mode = iota
	Mode16
)

// DefaultMode is the variant selected at start-up.
const DefaultMode = Mode16

// Frame prefixes
const (
	playPrefix8    = "f3"
	playPrefix16   = "fff3"
	volumePrefix8  = "e"
	volumePrefix16 = "ffe"
)

// Value limits
const (
	MaxValue8  = 0xFF
	MaxValue16 = 0xFFFF
	MaxVolume  = 15
	MinVolume  = 0
)

// ChainCapacity is the number of slots in a chained-play sequence.
const ChainCapacity = 40

// Width returns the number of hex digits in the mode's value field.
func (m Mode) Width() int {
	if m == Mode8 {
		return 2
	}
	return 4
}

// MaxValue returns the largest value representable in the mode's value field.
func (m Mode) MaxValue() int {
	if m == Mode8 {
		return MaxValue8
	}
	return MaxValue16
}

func (m Mode) String() string {
	switch m {
	case Mode8:
		return "TIRO_8bit"
	case Mode16:
		return "TIRO_16bit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Bits returns 8 or 16.
func (m Mode) Bits() int {
	if m == Mode8 {
		return 8
	}
	return 16
}

// ParseMode accepts "8", "16" or the String() forms, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "8", "8bit", "tiro_8bit":
		return Mode8, nil
	case "16", "16bit", "tiro_16bit":
		return Mode16, nil
	}
	return DefaultMode, fmt.Errorf("%w: unknown protocol mode %q (use 8 or 16)", ErrParse, s)
}
