// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wall-clock format used on every log line.
const TimestampLayout = "15:04:05"

// FormatTimestamp renders t as HH:MM:SS.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatSent formats the echo shown after a successful write.
func FormatSent(t time.Time, hexFrame string) string {
	return fmt.Sprintf("%s sent: %s", FormatTimestamp(t), hexFrame)
}

// FormatReceived formats decoded inbound text.
func FormatReceived(t time.Time, text string) string {
	return fmt.Sprintf("%s received: %s", FormatTimestamp(t), text)
}

// DescribeFrame splits a hex frame into the commands it carries, for
// example "PLAY 10, VOLUME 5". Bytes that do not form a command are shown
// as RAW.
func DescribeFrame(hexFrame string, mode Mode) string {
	s := strings.ToLower(hexFrame)
	var parts []string
	var raw strings.Builder

	flushRaw := func() {
		if raw.Len() > 0 {
			parts = append(parts, "RAW "+raw.String())
			raw.Reset()
		}
	}

	playPrefix, volumePrefix := playPrefix16, volumePrefix16
	if mode == Mode8 {
		playPrefix, volumePrefix = playPrefix8, volumePrefix8
	}

	for len(s) > 0 {
		if n := len(playPrefix) + mode.Width(); strings.HasPrefix(s, playPrefix) && len(s) >= n {
			if v, err := strconv.ParseUint(s[len(playPrefix):n], 16, 32); err == nil {
				flushRaw()
				parts = append(parts, fmt.Sprintf("PLAY %d", v))
				s = s[n:]
				continue
			}
		}
		if n := len(volumePrefix) + 1; strings.HasPrefix(s, volumePrefix) && len(s) >= n {
			if v, err := strconv.ParseUint(s[len(volumePrefix):n], 16, 8); err == nil {
				flushRaw()
				parts = append(parts, fmt.Sprintf("VOLUME %d", v))
				s = s[n:]
				continue
			}
		}
		if len(s) < 2 {
			raw.WriteString(s)
			break
		}
		raw.WriteString(s[:2])
		s = s[2:]
	}
	flushRaw()

	if len(parts) == 0 {
		return "EMPTY"
	}
	return strings.Join(parts, ", ")
}

// FormatHexDump formats bytes as upper-case hex, 16 per line.
func FormatHexDump(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n")
		} else if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
