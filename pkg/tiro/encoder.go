// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"fmt"
	"strings"
)

// EncodeValue renders value as a zero-padded lower-case hex field of the
// mode's width.
func EncodeValue(value int, mode Mode) (string, error) {
	if value < 0 || value > mode.MaxValue() {
		return "", fmt.Errorf("%w: %d does not fit %s (0-%d)", ErrRange, value, mode, mode.MaxValue())
	}
	return fmt.Sprintf("%0*x", mode.Width(), value), nil
}

// PlayFrame builds the hex frame that plays voice number value.
func PlayFrame(value int, mode Mode) (string, error) {
	field, err := EncodeValue(value, mode)
	if err != nil {
		return "", err
	}
	if mode == Mode8 {
		return playPrefix8 + field, nil
	}
	return playPrefix16 + field, nil
}

// VolumeFrame builds the hex frame that sets the output volume (0-15).
func VolumeFrame(volume int, mode Mode) (string, error) {
	if volume < MinVolume || volume > MaxVolume {
		return "", fmt.Errorf("%w: volume %d must be between %d and %d", ErrRange, volume, MinVolume, MaxVolume)
	}
	if mode == Mode8 {
		return fmt.Sprintf("%s%x", volumePrefix8, volume), nil
	}
	return fmt.Sprintf("%s%x", volumePrefix16, volume), nil
}

// ChainFrame concatenates the play frames for values in order.
// The whole chain is rejected if any value is out of range.
func ChainFrame(values []int, mode Mode) (string, error) {
	var sb strings.Builder
	sb.Grow(len(values) * (len(playPrefix16) + mode.Width()))

	for i, v := range values {
		frame, err := PlayFrame(v, mode)
		if err != nil {
			return "", fmt.Errorf("slot %d: %w", i+1, err)
		}
		sb.WriteString(frame)
	}

	return sb.String(), nil
}
