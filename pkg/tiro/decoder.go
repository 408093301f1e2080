// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DecodeHex converts a hex frame to the bytes written on the wire.
// Decoding is case-insensitive.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d in %q", ErrMalformedFrame, len(s), s)
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		var invalid hex.InvalidByteError
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("%w: invalid hex character %q in %q", ErrMalformedFrame, rune(invalid), s)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	return data, nil
}

// NormalizeHex prepares user-typed hex for raw passthrough. Whitespace
// between digits is dropped and the result is lower-cased and validated.
func NormalizeHex(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)

	if s == "" {
		return "", fmt.Errorf("%w: empty hex command", ErrMalformedFrame)
	}
	if _, err := DecodeHex(s); err != nil {
		return "", err
	}

	return s, nil
}
