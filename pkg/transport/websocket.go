// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket reaches a module through a network serial bridge that relays
// UART bytes as WebSocket messages. Line parameters are owned by the
// bridge and ignored here.
type WebSocket struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
	InboxSize     int
}

// Ports lists the single bridge endpoint
func (w *WebSocket) Ports() ([]PortDescriptor, error) {
	return []PortDescriptor{{Name: w.URL, Product: "WebSocket bridge"}}, nil
}

// Open dials the bridge. A bridge that rejects the credentials yields
// ErrAuth; other handshake refusals carry the HTTP status.
func (w *WebSocket) Open(name string, _ LineConfig) (Handle, error) {
	if name == "" {
		name = w.URL
	}

	u, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL %q: %w", name, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported bridge URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsDialTimeout)
	defer cancel()

	conn, resp, err := w.dialer(u).DialContext(ctx, u.String(), w.header())
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, handshakeError(u, resp, err)
	}

	h := &wsHandle{
		conn:  conn,
		inbox: newInbox(w.InboxSize),
	}
	go h.readLoop()

	return h, nil
}

const (
	wsHandshakeTimeout = 10 * time.Second
	wsDialTimeout      = 15 * time.Second
)

func (w *WebSocket) dialer(u *url.URL) *websocket.Dialer {
	d := &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	if u.Scheme == "wss" {
		d.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: w.SkipSSLVerify, //nolint:gosec // opt-in via --no-ssl-verify
		}
	}
	return d
}

// header carries Basic credentials only when both halves are set
func (w *WebSocket) header() http.Header {
	h := http.Header{}
	if w.Username != "" && w.Password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(w.Username + ":" + w.Password))
		h.Set("Authorization", "Basic "+token)
	}
	return h
}

func handshakeError(u *url.URL, resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("bridge %s unreachable: %w", u.Host, err)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: bridge %s answered HTTP %d", ErrAuth, u.Host, resp.StatusCode)
	default:
		return fmt.Errorf("bridge %s refused the upgrade (HTTP %d): %w", u.Host, resp.StatusCode, err)
	}
}

type wsHandle struct {
	conn    *websocket.Conn
	inbox   *inbox
	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// readLoop feeds binary and text messages into the inbox until the
// connection fails.
func (h *wsHandle) readLoop() {
	for {
		messageType, data, err := h.conn.ReadMessage()
		if err != nil {
			h.inbox.fail(err)
			return
		}
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		h.inbox.push(data)
	}
}

func (h *wsHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *wsHandle) Buffered() (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.inbox.buffered()
}

func (h *wsHandle) Read(p []byte) (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	return h.inbox.read(p)
}

func (h *wsHandle) Write(p []byte) (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (h *wsHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	return h.conn.Close()
}
