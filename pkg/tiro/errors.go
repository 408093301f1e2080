// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import "errors"

var (
	// ErrRange is returned for values that do not fit the protocol field.
	ErrRange = errors.New("value out of range")
	// ErrParse is returned for non-numeric user input.
	ErrParse = errors.New("invalid number")
	// ErrMalformedFrame is returned for hex strings that cannot become bytes.
	ErrMalformedFrame = errors.New("malformed frame")
)
