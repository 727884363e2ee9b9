// Package rule implements the Wolfram rule codec for one-dimensional
// elementary cellular automata.
//
// A rule number in [0,255] is an 8-bit truth table indexed by the 3-bit
// neighborhood pattern (left, current, right), left most significant.
// Rule 22 is "00010110": neighborhoods 100, 010 and 001 produce a live
// cell, everything else dies.
//
// Two entry points exist on purpose:
//   - BinaryString is strict and rejects out-of-range rules with
//     *InvalidRuleError.
//   - Clamp is permissive and is used on every boundary where values
//     arrive from URLs or free-form input.
package rule

import (
	"fmt"
	"math"
)

// Rule number bounds.
const (
	Min = 0
	Max = 255
)

// InvalidRuleError reports a rule number outside [Min,Max].
// Raised only by the strict codec entry point, never by clamped paths.
type InvalidRuleError struct {
	Rule int
}

// Error implements the error interface.
func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %d: must be in [%d,%d]", e.Rule, Min, Max)
}

// BinaryString returns the rule's 8-bit binary representation, most
// significant bit first, zero-padded to width 8.
//
// Example: rule 22 -> "00010110".
func BinaryString(r int) (string, error) {
	if r < Min || r > Max {
		return "", &InvalidRuleError{Rule: r}
	}
	return fmt.Sprintf("%08b", r), nil
}

// Clamp floors v and clamps it into [Min,Max]. Non-finite input maps to
// Min. This is the permissive path for values arriving from URLs and
// text fields.
func Clamp(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Min
	}
	r := int(math.Floor(v))
	if r < Min {
		return Min
	}
	if r > Max {
		return Max
	}
	return r
}

// Table is a rule's truth table. Index with left*4 + current*2 + right.
type Table [8]uint8

// TableOf expands a rule number into its truth table. Out-of-range rules
// are clamped.
func TableOf(r int) Table {
	if r < Min {
		r = Min
	} else if r > Max {
		r = Max
	}
	var t Table
	for i := 0; i < 8; i++ {
		t[i] = uint8(r>>i) & 1
	}
	return t
}

// Next returns the successor value for a cell given its 3-neighborhood.
// Inputs must be 0 or 1.
func (t Table) Next(left, current, right uint8) uint8 {
	return t[left*4+current*2+right]
}
