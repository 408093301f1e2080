// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tiro

import (
	"fmt"
	"strconv"
	"strings"
)

type slot struct {
	value int
	set   bool
}

// ChainSlots is the fixed 40-slot chained-play sequence.
//
// Only the active prefix is ever encoded or persisted: reading stops at the
// first unset slot, so values after a gap are ignored.
type ChainSlots struct {
	slots [ChainCapacity]slot
}

// NewChainSlots returns an empty chain.
func NewChainSlots() *ChainSlots {
	return &ChainSlots{}
}

func checkIndex(index int) error {
	if index < 1 || index > ChainCapacity {
		return fmt.Errorf("%w: slot %d (valid 1-%d)", ErrRange, index, ChainCapacity)
	}
	return nil
}

// SetSlot assigns value to the 1-based slot index.
func (c *ChainSlots) SetSlot(index, value int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: slot %d value %d is negative", ErrRange, index, value)
	}
	c.slots[index-1] = slot{value: value, set: true}
	return nil
}

// ClearSlot unsets the 1-based slot index.
func (c *ChainSlots) ClearSlot(index int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	c.slots[index-1] = slot{}
	return nil
}

// ClearAll unsets every slot.
func (c *ChainSlots) ClearAll() {
	c.slots = [ChainCapacity]slot{}
}

// Slot returns the value in the 1-based slot index and whether it is set.
func (c *ChainSlots) Slot(index int) (int, bool) {
	if checkIndex(index) != nil {
		return 0, false
	}
	s := c.slots[index-1]
	return s.value, s.set
}

// ActiveValues returns the values up to, not including, the first unset slot.
func (c *ChainSlots) ActiveValues() []int {
	values := make([]int, 0, ChainCapacity)
	for _, s := range c.slots {
		if !s.set {
			break
		}
		values = append(values, s.value)
	}
	return values
}

// Len returns the length of the active prefix.
func (c *ChainSlots) Len() int {
	n := 0
	for _, s := range c.slots {
		if !s.set {
			break
		}
		n++
	}
	return n
}

// LoadTokens fills slots 1..len(tokens) from decimal tokens and clears the
// rest. Tokens past ChainCapacity are ignored. On a bad token ErrParse is
// returned and the slots assigned before it keep their new values.
func (c *ChainSlots) LoadTokens(tokens []string) error {
	if len(tokens) > ChainCapacity {
		tokens = tokens[:ChainCapacity]
	}

	for i, tok := range tokens {
		v, err := ParseValue(tok)
		if err != nil {
			return fmt.Errorf("slot %d: %w", i+1, err)
		}
		c.slots[i] = slot{value: v, set: true}
	}

	for i := len(tokens); i < ChainCapacity; i++ {
		c.slots[i] = slot{}
	}

	return nil
}

// LoadCommand is LoadTokens over a space-separated command string.
func (c *ChainSlots) LoadCommand(command string) error {
	return c.LoadTokens(strings.Fields(command))
}

// Tokens returns the active prefix as decimal strings.
func (c *ChainSlots) Tokens() []string {
	values := c.ActiveValues()
	tokens := make([]string, len(values))
	for i, v := range values {
		tokens[i] = strconv.Itoa(v)
	}
	return tokens
}

// Command returns the active prefix as a space-separated string.
func (c *ChainSlots) Command() string {
	return strings.Join(c.Tokens(), " ")
}

// Frame encodes the active prefix as consecutive play frames.
func (c *ChainSlots) Frame(mode Mode) (string, error) {
	return ChainFrame(c.ActiveValues(), mode)
}

// Equal reports whether both chains hold the same slots, gaps included.
func (c *ChainSlots) Equal(other *ChainSlots) bool {
	return c.slots == other.slots
}
