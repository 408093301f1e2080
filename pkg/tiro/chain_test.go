// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"errors"
	"math/rand"
	"reflect"
	"strconv"
	"testing"
)

func TestChainSlots_ActiveValuesStopsAtGap(t *testing.T) {
	c := NewChainSlots()
	mustSet(t, c, 1, 5)
	mustSet(t, c, 2, 3)
	mustSet(t, c, 4, 7)

	got := c.ActiveValues()
	if !reflect.DeepEqual(got, []int{5, 3}) {
		t.Errorf("ActiveValues() = %v, want [5 3]", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	frame, err := c.Frame(Mode16)
	if err != nil {
		t.Fatalf("Frame error: %v", err)
	}
	if frame != "fff30005fff30003" {
		t.Errorf("Frame(Mode16) = %q, value after gap must not be encoded", frame)
	}
}

func TestChainSlots_FirstSlotEmpty(t *testing.T) {
	c := NewChainSlots()
	mustSet(t, c, 2, 9)

	if got := c.ActiveValues(); len(got) != 0 {
		t.Errorf("ActiveValues() = %v, want empty", got)
	}
	if c.Command() != "" {
		t.Errorf("Command() = %q, want empty", c.Command())
	}
}

func TestChainSlots_FullChain(t *testing.T) {
	c := NewChainSlots()
	for i := 1; i <= ChainCapacity; i++ {
		mustSet(t, c, i, i)
	}
	if c.Len() != ChainCapacity {
		t.Errorf("Len() = %d, want %d", c.Len(), ChainCapacity)
	}
}

func TestChainSlots_IndexBounds(t *testing.T) {
	c := NewChainSlots()
	for _, idx := range []int{0, -1, ChainCapacity + 1} {
		if err := c.SetSlot(idx, 1); !errors.Is(err, ErrRange) {
			t.Errorf("SetSlot(%d) error = %v, want ErrRange", idx, err)
		}
		if err := c.ClearSlot(idx); !errors.Is(err, ErrRange) {
			t.Errorf("ClearSlot(%d) error = %v, want ErrRange", idx, err)
		}
		if _, ok := c.Slot(idx); ok {
			t.Errorf("Slot(%d) reported set", idx)
		}
	}
	if err := c.SetSlot(1, -5); !errors.Is(err, ErrRange) {
		t.Errorf("SetSlot(1, -5) error = %v, want ErrRange", err)
	}
}

func TestChainSlots_ClearSlotAndAll(t *testing.T) {
	c := NewChainSlots()
	mustSet(t, c, 1, 1)
	mustSet(t, c, 2, 2)
	mustSet(t, c, 3, 3)

	if err := c.ClearSlot(2); err != nil {
		t.Fatalf("ClearSlot error: %v", err)
	}
	if got := c.ActiveValues(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("ActiveValues() after ClearSlot(2) = %v, want [1]", got)
	}
	if v, ok := c.Slot(3); !ok || v != 3 {
		t.Errorf("Slot(3) = %d, %v; clearing slot 2 must not touch slot 3", v, ok)
	}

	c.ClearAll()
	for i := 1; i <= ChainCapacity; i++ {
		if _, ok := c.Slot(i); ok {
			t.Fatalf("Slot(%d) still set after ClearAll", i)
		}
	}
}

func TestChainSlots_LoadTokens(t *testing.T) {
	c := NewChainSlots()
	for i := 1; i <= 10; i++ {
		mustSet(t, c, i, 99)
	}

	if err := c.LoadTokens([]string{"1", "2", "3"}); err != nil {
		t.Fatalf("LoadTokens error: %v", err)
	}
	if got := c.ActiveValues(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("ActiveValues() = %v, want [1 2 3]", got)
	}
	if _, ok := c.Slot(4); ok {
		t.Error("slot 4 should be cleared by LoadTokens")
	}
}

func TestChainSlots_LoadTokensPartialOnParseError(t *testing.T) {
	c := NewChainSlots()
	mustSet(t, c, 3, 42)

	err := c.LoadTokens([]string{"7", "8", "x9", "10"})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("LoadTokens error = %v, want ErrParse", err)
	}
	if got := c.ActiveValues(); !reflect.DeepEqual(got, []int{7, 8, 42}) {
		t.Errorf("ActiveValues() = %v, want [7 8 42] (slots before the bad token assigned, rest untouched)", got)
	}
}

func TestChainSlots_LoadTokensTruncates(t *testing.T) {
	tokens := make([]string, ChainCapacity+5)
	for i := range tokens {
		tokens[i] = strconv.Itoa(i)
	}
	c := NewChainSlots()
	if err := c.LoadTokens(tokens); err != nil {
		t.Fatalf("LoadTokens error: %v", err)
	}
	if c.Len() != ChainCapacity {
		t.Errorf("Len() = %d, want %d", c.Len(), ChainCapacity)
	}
}

func TestChainSlots_LoadCommand(t *testing.T) {
	c := NewChainSlots()
	// Documents written by older tools carry a trailing space
	if err := c.LoadCommand("12 34 56 "); err != nil {
		t.Fatalf("LoadCommand error: %v", err)
	}
	if c.Command() != "12 34 56" {
		t.Errorf("Command() = %q, want %q", c.Command(), "12 34 56")
	}
}

func TestChainSlots_TokensRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 200; round++ {
		s := NewChainSlots()
		n := rng.Intn(ChainCapacity + 1)
		for i := 1; i <= n; i++ {
			mustSet(t, s, i, rng.Intn(MaxValue16+1))
		}

		loaded := NewChainSlots()
		if err := loaded.LoadTokens(s.Tokens()); err != nil {
			t.Fatalf("round %d: LoadTokens error: %v", round, err)
		}
		if !loaded.Equal(s) {
			t.Fatalf("round %d: round trip mismatch: %v != %v", round, loaded.ActiveValues(), s.ActiveValues())
		}
	}
}

func mustSet(t *testing.T, c *ChainSlots, index, value int) {
	t.Helper()
	if err := c.SetSlot(index, value); err != nil {
		t.Fatalf("SetSlot(%d, %d) error: %v", index, value, err)
	}
}
