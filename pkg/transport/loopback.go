// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"slices"
	"sync"
)

// Loopback is an in-memory transport. Writes are recorded and, with Echo
// set, fed back as inbound bytes. Tests use it to simulate a device and
// to make ports appear and disappear.
type Loopback struct {
	mu        sync.Mutex
	ports     []string
	portsErr  error
	openErr   error
	Echo      bool
	InboxSize int
	handles   []*loopbackHandle
}

// NewLoopback creates a loopback transport listing the given ports
func NewLoopback(ports ...string) *Loopback {
	return &Loopback{ports: slices.Clone(ports)}
}

// SetPorts replaces the enumerated port list
func (l *Loopback) SetPorts(ports ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ports = slices.Clone(ports)
}

// RemovePort drops name from the enumerated port list, as if unplugged
func (l *Loopback) RemovePort(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ports = slices.DeleteFunc(l.ports, func(p string) bool { return p == name })
}

// FailPorts makes Ports return err until called again with nil
func (l *Loopback) FailPorts(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.portsErr = err
}

// FailOpen makes Open return err until called again with nil
func (l *Loopback) FailOpen(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.openErr = err
}

func (l *Loopback) Ports() ([]PortDescriptor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.portsErr != nil {
		return nil, l.portsErr
	}
	ports := make([]PortDescriptor, 0, len(l.ports))
	for _, name := range l.ports {
		ports = append(ports, PortDescriptor{Name: name, Product: "loopback"})
	}
	return ports, nil
}

func (l *Loopback) Open(name string, _ LineConfig) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.openErr != nil {
		return nil, l.openErr
	}
	if !slices.Contains(l.ports, name) {
		return nil, fmt.Errorf("%w: %s", ErrPortNotFound, name)
	}

	h := &loopbackHandle{
		name:  name,
		inbox: newInbox(l.InboxSize),
		echo:  l.Echo,
	}
	l.handles = append(l.handles, h)
	return h, nil
}

// Written returns every byte written to any handle, in order
func (l *Loopback) Written() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []byte
	for _, h := range l.handles {
		out = append(out, h.written()...)
	}
	return out
}

// Inject delivers p as inbound bytes on every open handle
func (l *Loopback) Inject(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.handles {
		if !h.isClosed() {
			h.inbox.push(p)
		}
	}
}

// Break makes every open handle fail with err once drained
func (l *Loopback) Break(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.handles {
		h.inbox.fail(err)
	}
}

// OpenHandles returns the number of handles not yet closed
func (l *Loopback) OpenHandles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, h := range l.handles {
		if !h.isClosed() {
			n++
		}
	}
	return n
}

type loopbackHandle struct {
	name   string
	inbox  *inbox
	echo   bool
	mu     sync.Mutex
	out    []byte
	closed bool
}

func (h *loopbackHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *loopbackHandle) written() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.out)
}

func (h *loopbackHandle) Buffered() (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.inbox.buffered()
}

func (h *loopbackHandle) Read(p []byte) (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.inbox.read(p)
}

func (h *loopbackHandle) Write(p []byte) (int, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, ErrClosed
	}
	h.out = append(h.out, p...)
	h.mu.Unlock()

	if h.echo {
		h.inbox.push(p)
	}
	return len(p), nil
}

func (h *loopbackHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
