// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// seams for tests
var (
	openPort  = serial.Open
	listPorts = enumerator.GetDetailedPortsList
)

// Serial is the UART transport
type Serial struct {
	// InboxSize bounds unread inbound bytes; zero selects DefaultInboxSize
	InboxSize int
}

// NewSerial creates a UART transport
func NewSerial() *Serial {
	return &Serial{}
}

// Ports lists the serial ports currently present on the system
func (s *Serial) Ports() ([]PortDescriptor, error) {
	details, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortDescriptor{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}

// Open opens a serial port and starts its reader goroutine
func (s *Serial) Open(name string, cfg LineConfig) (Handle, error) {
	port, err := openPort(name, serialMode(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	h := &serialHandle{
		port:  port,
		inbox: newInbox(s.InboxSize),
	}
	go h.inbox.pump(port)

	return h, nil
}

func serialMode(cfg LineConfig) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	switch cfg.Parity {
	case EvenParity:
		mode.Parity = serial.EvenParity
	case OddParity:
		mode.Parity = serial.OddParity
	}

	switch cfg.StopBits {
	case OnePointFiveStopBits:
		mode.StopBits = serial.OnePointFiveStopBits
	case TwoStopBits:
		mode.StopBits = serial.TwoStopBits
	}

	return mode
}

type serialHandle struct {
	port   serial.Port
	inbox  *inbox
	mu     sync.Mutex
	closed bool
}

func (h *serialHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *serialHandle) Buffered() (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.inbox.buffered()
}

func (h *serialHandle) Read(p []byte) (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.inbox.read(p)
}

func (h *serialHandle) Write(p []byte) (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.port.Write(p)
}

// Close closes the port, which also unblocks the reader goroutine
func (h *serialHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	return h.port.Close()
}
