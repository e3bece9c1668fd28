// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"math"
	"strconv"
	"strings"
)

// Value is a concrete attribute or variable value: a Number, a String or a
// Vector. Values produced by redraw modifiers are wrapped in a RangeValue.
type Value interface {
	String() string
	value()
}

// Number is a scalar numeric value.
type Number float64

// String is a symbolic value such as "on" or a bare identifier that names no
// variable.
type String string

// Vector is a small numeric tuple, e.g. a position (1, 2, 3).
type Vector []float64

// RangeValue is an attribute value that is still to be drawn from a range by
// the simulation engine.
type RangeValue struct {
	Range ValueRange
}

func (Number) value()     {}
func (String) value()     {}
func (Vector) value()     {}
func (RangeValue) value() {}

func (n Number) String() string {
	return formatFloat(float64(n))
}

func (s String) String() string {
	if isBareWord(string(s)) {
		return string(s)
	}
	return strconv.Quote(string(s))
}

func (v Vector) String() string {
	parts := make([]string, len(v))
	for i := range v {
		parts[i] = formatFloat(v[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (r RangeValue) String() string {
	return r.Range.String()
}

// ValueEqual returns true if a and b are the same value. Numbers compare
// exactly; NaN is not equal to itself.
func ValueEqual(a, b Value) bool {
	switch a := a.(type) {
	case Number:
		if b, ok := b.(Number); ok {
			return a == b
		}
	case String:
		if b, ok := b.(String); ok {
			return a == b
		}
	case Vector:
		if b, ok := b.(Vector); ok {
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		}
	case RangeValue:
		if b, ok := b.(RangeValue); ok {
			return a.Range.String() == b.Range.String()
		}
	}
	return false
}

// AsNumber returns v as a float64 if v is a Number.
func AsNumber(v Value) (float64, bool) {
	if n, ok := v.(Number); ok {
		return float64(n), true
	}
	return 0, false
}

// TruthyValue reports whether v is one of the true-like values accepted for
// model flags: true, yes, 1 or 1.0 (case-insensitive for strings).
func TruthyValue(v Value) bool {
	switch v := v.(type) {
	case Number:
		return v == 1
	case String:
		switch strings.ToLower(string(v)) {
		case "true", "yes", "1", "1.0":
			return true
		}
	}
	return false
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isBareWord(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
