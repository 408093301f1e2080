// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"fmt"
	"sync"
	"time"
)

// Statistics tracks traffic and error counters for a session
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Outbound
	FramesSent   uint64
	BytesSent    uint64
	WriteErrors  uint64
	EncodeErrors uint64

	// Inbound
	ReceiveEvents uint64
	BytesReceived uint64
	Overflows     uint64

	// Link
	Disconnects uint64

	// Rates (calculated)
	SendRate    float64 // frames/sec
	ReceiveRate float64 // bytes/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordSent counts a frame of n bytes written to the device
func (s *Statistics) RecordSent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FramesSent++
	s.BytesSent += uint64(n)
	s.LastUpdateTime = time.Now()
}

// RecordReceived counts one poll that returned n bytes
func (s *Statistics) RecordReceived(n int, overflowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReceiveEvents++
	s.BytesReceived += uint64(n)
	if overflowed {
		s.Overflows++
	}
	s.LastUpdateTime = time.Now()
}

// RecordWriteError counts a failed write
func (s *Statistics) RecordWriteError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteErrors++
}

// RecordEncodeError counts input rejected before it reached the wire
func (s *Statistics) RecordEncodeError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EncodeErrors++
}

// RecordDisconnect counts a lost link
func (s *Statistics) RecordDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Disconnects++
}

// CalculateRates calculates send and receive rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.SendRate = float64(s.FramesSent) / elapsed
		s.ReceiveRate = float64(s.BytesReceived) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d (%d bytes)\n", s.FramesSent, s.BytesSent)
	result += fmt.Sprintf("Receive Events:  %8d (%d bytes)\n", s.ReceiveEvents, s.BytesReceived)

	if s.EncodeErrors > 0 {
		result += fmt.Sprintf("Rejected Input:  %8d\n", s.EncodeErrors)
	}
	if s.WriteErrors > 0 {
		result += fmt.Sprintf("Write Errors:    %8d\n", s.WriteErrors)
	}
	if s.Overflows > 0 {
		result += fmt.Sprintf("Buffer Overflow: %8d\n", s.Overflows)
	}
	if s.Disconnects > 0 {
		result += fmt.Sprintf("Disconnects:     %8d\n", s.Disconnects)
	}

	result += fmt.Sprintf("Send Rate:       %8.1f frames/sec\n", s.SendRate)
	result += fmt.Sprintf("Receive Rate:    %8.1f bytes/sec\n", s.ReceiveRate)
	result += "================================\n"

	return result
}

// Snapshot returns a copy of the counters
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
	return Statistics{
		StartTime:      s.StartTime,
		LastUpdateTime: s.LastUpdateTime,
		FramesSent:     s.FramesSent,
		BytesSent:      s.BytesSent,
		WriteErrors:    s.WriteErrors,
		EncodeErrors:   s.EncodeErrors,
		ReceiveEvents:  s.ReceiveEvents,
		BytesReceived:  s.BytesReceived,
		Overflows:      s.Overflows,
		Disconnects:    s.Disconnects,
		SendRate:       s.SendRate,
		ReceiveRate:    s.ReceiveRate,
	}
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.FramesSent = 0
	s.BytesSent = 0
	s.WriteErrors = 0
	s.EncodeErrors = 0
	s.ReceiveEvents = 0
	s.BytesReceived = 0
	s.Overflows = 0
	s.Disconnects = 0
	s.SendRate = 0
	s.ReceiveRate = 0
}
