// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ============================================================
// Value Encoding Tests
// ============================================================

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name  string
		value int
		mode  Mode
		want  string
	}{
		{"8bit zero", 0, Mode8, "00"},
		{"8bit ten", 10, Mode8, "0a"},
		{"8bit max", 255, Mode8, "ff"},
		{"16bit zero", 0, Mode16, "0000"},
		{"16bit ten", 10, Mode16, "000a"},
		{"16bit 8bit overflow", 256, Mode16, "0100"},
		{"16bit max", 65535, Mode16, "ffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.value, tt.mode)
			if err != nil {
				t.Fatalf("EncodeValue(%d, %s) error: %v", tt.value, tt.mode, err)
			}
			if got != tt.want {
				t.Errorf("EncodeValue(%d, %s) = %q, want %q", tt.value, tt.mode, got, tt.want)
			}
		})
	}
}

func TestEncodeValue_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		value int
		mode  Mode
	}{
		{"8bit negative", -1, Mode8},
		{"8bit too large", 256, Mode8},
		{"16bit negative", -1, Mode16},
		{"16bit too large", 65536, Mode16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeValue(tt.value, tt.mode)
			if !errors.Is(err, ErrRange) {
				t.Errorf("EncodeValue(%d, %s) error = %v, want ErrRange", tt.value, tt.mode, err)
			}
		})
	}
}

// ============================================================
// Frame Builder Tests
// ============================================================

func TestPlayFrame_AllValues8(t *testing.T) {
	for v := 0; v <= MaxValue8; v++ {
		got, err := PlayFrame(v, Mode8)
		if err != nil {
			t.Fatalf("PlayFrame(%d, Mode8) error: %v", v, err)
		}
		want := fmt.Sprintf("f3%02x", v)
		if got != want {
			t.Fatalf("PlayFrame(%d, Mode8) = %q, want %q", v, got, want)
		}
	}
}

func TestPlayFrame_Values16(t *testing.T) {
	for _, v := range []int{0, 1, 10, 255, 256, 4096, 12345, 65534, 65535} {
		got, err := PlayFrame(v, Mode16)
		if err != nil {
			t.Fatalf("PlayFrame(%d, Mode16) error: %v", v, err)
		}
		want := fmt.Sprintf("fff3%04x", v)
		if got != want {
			t.Errorf("PlayFrame(%d, Mode16) = %q, want %q", v, got, want)
		}
	}
}

func TestPlayFrame_OutOfRange(t *testing.T) {
	if _, err := PlayFrame(300, Mode8); !errors.Is(err, ErrRange) {
		t.Errorf("PlayFrame(300, Mode8) error = %v, want ErrRange", err)
	}
	if _, err := PlayFrame(70000, Mode16); !errors.Is(err, ErrRange) {
		t.Errorf("PlayFrame(70000, Mode16) error = %v, want ErrRange", err)
	}
}

func TestVolumeFrame(t *testing.T) {
	for v := MinVolume; v <= MaxVolume; v++ {
		got8, err := VolumeFrame(v, Mode8)
		if err != nil {
			t.Fatalf("VolumeFrame(%d, Mode8) error: %v", v, err)
		}
		if want := fmt.Sprintf("e%x", v); got8 != want {
			t.Errorf("VolumeFrame(%d, Mode8) = %q, want %q", v, got8, want)
		}

		got16, err := VolumeFrame(v, Mode16)
		if err != nil {
			t.Fatalf("VolumeFrame(%d, Mode16) error: %v", v, err)
		}
		if want := fmt.Sprintf("ffe%x", v); got16 != want {
			t.Errorf("VolumeFrame(%d, Mode16) = %q, want %q", v, got16, want)
		}
		if len(strings.TrimPrefix(got16, "ffe")) != 1 {
			t.Errorf("VolumeFrame(%d, Mode16) = %q, want exactly one digit after prefix", v, got16)
		}
	}
}

func TestVolumeFrame_OutOfRange(t *testing.T) {
	for _, v := range []int{-1, 16, 100} {
		for _, mode := range []Mode{Mode8, Mode16} {
			if _, err := VolumeFrame(v, mode); !errors.Is(err, ErrRange) {
				t.Errorf("VolumeFrame(%d, %s) error = %v, want ErrRange", v, mode, err)
			}
		}
	}
}

func TestVolumeFrame_DecodesToWholeBytes(t *testing.T) {
	frame, _ := VolumeFrame(5, Mode16)
	data, err := DecodeHex(frame)
	if err != nil {
		t.Fatalf("DecodeHex(%q) error: %v", frame, err)
	}
	if len(data) != 2 || data[0] != 0xFF || data[1] != 0xE5 {
		t.Errorf("DecodeHex(%q) = % X, want FF E5", frame, data)
	}
}

func TestChainFrame(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		mode   Mode
		want   string
	}{
		{"empty", nil, Mode16, ""},
		{"single 16bit", []int{10}, Mode16, "fff3000a"},
		{"three 16bit", []int{1, 2, 300}, Mode16, "fff30001fff30002fff3012c"},
		{"three 8bit", []int{1, 2, 255}, Mode8, "f301f302f3ff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChainFrame(tt.values, tt.mode)
			if err != nil {
				t.Fatalf("ChainFrame error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ChainFrame(%v, %s) = %q, want %q", tt.values, tt.mode, got, tt.want)
			}
		})
	}
}

func TestChainFrame_RejectsWholeChain(t *testing.T) {
	got, err := ChainFrame([]int{1, 2, 256}, Mode8)
	if !errors.Is(err, ErrRange) {
		t.Fatalf("ChainFrame error = %v, want ErrRange", err)
	}
	if got != "" {
		t.Errorf("ChainFrame returned partial frame %q on error", got)
	}
	if !strings.Contains(err.Error(), "slot 3") {
		t.Errorf("error %q should name slot 3", err)
	}
}

// ============================================================
// Mode Tests
// ============================================================

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"8", Mode8, false},
		{"16", Mode16, false},
		{"TIRO_8bit", Mode8, false},
		{"tiro_16bit", Mode16, false},
		{" 16 ", Mode16, false},
		{"32", DefaultMode, true},
		{"", DefaultMode, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestMode_String(t *testing.T) {
	if Mode8.String() != "TIRO_8bit" {
		t.Errorf("Mode8.String() = %q", Mode8.String())
	}
	if Mode16.String() != "TIRO_16bit" {
		t.Errorf("Mode16.String() = %q", Mode16.String())
	}
	if DefaultMode != Mode16 {
		t.Errorf("DefaultMode = %s, want TIRO_16bit", DefaultMode)
	}
}
