// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseValue parses a decimal voice number or volume typed by the user.
func ParseValue(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParse, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrRange, v)
	}
	return v, nil
}

// StepValue adds delta to a voice number, stopping at zero.
func StepValue(v, delta int) int {
	v += delta
	if v < 0 {
		return 0
	}
	return v
}

// StepVolume adds delta to a volume and clamps the result to 0-15.
func StepVolume(v, delta int) int {
	v += delta
	switch {
	case v < MinVolume:
		return MinVolume
	case v > MaxVolume:
		return MaxVolume
	}
	return v
}
