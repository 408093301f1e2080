// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte-stream links a session talks over:
// a UART via go.bug.st/serial, a WebSocket serial bridge, and an in-memory
// loopback for tests and dry runs.
package transport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBufferOverflow is reported once when inbound bytes were dropped
	// because the receive buffer was full.
	ErrBufferOverflow = errors.New("receive buffer overflow")
	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("transport closed")
	// ErrPortNotFound is returned when opening a port that does not exist.
	ErrPortNotFound = errors.New("port not found")
	// ErrAuth is returned when a network bridge rejects the credentials.
	ErrAuth = errors.New("bridge rejected credentials")
)

// Parity of the serial line
type Parity int

const (
	NoParity Parity = iota
	EvenParity
	OddParity
)

func (p Parity) String() string {
	switch p {
	case EvenParity:
		return "even"
	case OddParity:
		return "odd"
	default:
		return "none"
	}
}

// ParseParity accepts none, even or odd.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return NoParity, nil
	case "even", "e":
		return EvenParity, nil
	case "odd", "o":
		return OddParity, nil
	}
	return NoParity, fmt.Errorf("unknown parity %q (use none, even or odd)", s)
}

// StopBits of the serial line
type StopBits int

const (
	OneStopBit StopBits = iota
	OnePointFiveStopBits
	TwoStopBits
)

func (s StopBits) String() string {
	switch s {
	case OnePointFiveStopBits:
		return "1.5"
	case TwoStopBits:
		return "2"
	default:
		return "1"
	}
}

// ParseStopBits accepts 1, 1.5 or 2.
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "", "1":
		return OneStopBit, nil
	case "1.5":
		return OnePointFiveStopBits, nil
	case "2":
		return TwoStopBits, nil
	}
	return OneStopBit, fmt.Errorf("unknown stop bits %q (use 1, 1.5 or 2)", s)
}

// DefaultBaudRate matches the TIRO modules' factory setting.
const DefaultBaudRate = 1000000

// LineConfig holds serial line parameters
type LineConfig struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultLineConfig returns 1000000 baud 8N1.
func DefaultLineConfig() LineConfig {
	return LineConfig{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

func (c LineConfig) String() string {
	return fmt.Sprintf("%d baud, parity %s, stop bits %s", c.BaudRate, c.Parity, c.StopBits)
}

// PortDescriptor describes an enumerated endpoint
type PortDescriptor struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// Transport enumerates and opens endpoints.
type Transport interface {
	Ports() ([]PortDescriptor, error)
	Open(name string, cfg LineConfig) (Handle, error)
}

// Handle is an open endpoint. Read never blocks when Buffered reported
// data; Buffered itself never blocks.
type Handle interface {
	Buffered() (int, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ContainsPort reports whether name is among ports.
func ContainsPort(ports []PortDescriptor, name string) bool {
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}
