// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"io"
	"sync"
)

// DefaultInboxSize bounds how many unread bytes a handle keeps.
const DefaultInboxSize = 64 * 1024

// inbox buffers bytes delivered by a reader goroutine until the session
// polls them. Arrival order is preserved; when full, new bytes are dropped
// and the next Buffered call reports ErrBufferOverflow.
type inbox struct {
	mu         sync.Mutex
	buf        []byte
	limit      int
	overflowed bool
	err        error
}

func newInbox(limit int) *inbox {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	return &inbox{limit: limit}
}

func (b *inbox) push(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - len(b.buf)
	if len(p) > room {
		p = p[:room]
		b.overflowed = true
	}
	b.buf = append(b.buf, p...)
}

// fail records the reader's terminal error. It is reported after the
// buffered data has been drained.
func (b *inbox) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *inbox) buffered() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.overflowed {
		b.overflowed = false
		return len(b.buf), ErrBufferOverflow
	}
	if len(b.buf) == 0 && b.err != nil {
		return 0, b.err
	}
	return len(b.buf), nil
}

func (b *inbox) read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, nil
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	if len(b.buf) == 0 {
		b.buf = nil
	}
	return n, nil
}

// pump copies r into the inbox until r fails.
func (b *inbox) pump(r io.Reader) {
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.push(buf[:n])
		}
		if err != nil {
			b.fail(err)
			return
		}
	}
}
