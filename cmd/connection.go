// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Thermoquad/tiroterm/pkg/history"
	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/transport"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// loopbackPort is the single port the --loopback transport lists
const loopbackPort = "loopback"

// PasswordEnv holds the WebSocket bridge password
const PasswordEnv = "TIROTERM_PASSWORD"

var errNoEndpoint = errors.New("either --port, --url or --loopback must be specified")

// passwordInput is where the bridge password is read from when
// PasswordEnv is unset.
var passwordInput = os.Stdin

// bridgePassword returns PasswordEnv or reads a password from in. A
// terminal is read without echo; anything else is read up to the first
// newline. The prompt goes to prompt.
func bridgePassword(in *os.File, prompt io.Writer, username string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprintf(prompt, "Password for %s: ", username)
	defer fmt.Fprintln(prompt)

	if fd := int(in.Fd()); term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("no password given for %s (set %s)", username, PasswordEnv)
	}
	return pw, nil
}

// buildTransport picks loopback, WebSocket or serial from the settings and
// returns it with the port to open. The port may be empty for serial.
func buildTransport() (transport.Transport, string, error) {
	vals := active.values

	if loopbackMode {
		lb := transport.NewLoopback(loopbackPort)
		lb.Echo = true
		return lb, loopbackPort, nil
	}

	if vals.WebSocket.URL != "" {
		password := ""
		if vals.WebSocket.Username != "" {
			var err error
			password, err = bridgePassword(passwordInput, os.Stderr, vals.WebSocket.Username)
			if err != nil {
				return nil, "", err
			}
		}

		ws := &transport.WebSocket{
			URL:           vals.WebSocket.URL,
			Username:      vals.WebSocket.Username,
			Password:      password,
			SkipSSLVerify: vals.WebSocket.NoSSLVerify,
		}
		return ws, vals.WebSocket.URL, nil
	}

	return transport.NewSerial(), vals.Port, nil
}

// newSession builds a closed session over the configured transport
func newSession() (*session.Session, string, error) {
	t, port, err := buildTransport()
	if err != nil {
		return nil, "", err
	}
	return session.New(t, session.WithLogger(log.Logger)), port, nil
}

// connectionInfo describes an open session for headers and logs
func connectionInfo(s *session.Session) string {
	switch {
	case loopbackMode:
		return "Loopback (echo)"
	case active.values.WebSocket.URL != "":
		return fmt.Sprintf("WebSocket: %s", s.Port())
	default:
		return fmt.Sprintf("Serial: %s @ %s", s.Port(), s.LineConfig())
	}
}

// OpenSession opens a session on the configured endpoint
func OpenSession() (*session.Session, string, error) {
	s, port, err := newSession()
	if err != nil {
		return nil, "", err
	}
	if port == "" {
		return nil, "", errNoEndpoint
	}

	if err := s.Open(port, active.line); err != nil {
		if errors.Is(err, transport.ErrAuth) {
			return nil, "", fmt.Errorf("%w (check --username and %s)", err, PasswordEnv)
		}
		return nil, "", err
	}
	return s, connectionInfo(s), nil
}

// openHistory loads the command history document
func openHistory() (*history.Store, error) {
	return history.Load(appFs, active.values.HistoryPath, history.WithLogger(log.Logger))
}
