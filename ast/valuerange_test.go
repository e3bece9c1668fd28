// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func numbers(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i := range fs {
		out[i] = Number(fs[i])
	}
	return out
}

func TestSteppedRangeToList(t *testing.T) {
	tests := []struct {
		note               string
		lower, step, upper float64
		exp                []Value
	}{
		{note: "unit step", lower: 1, step: 1, upper: 3, exp: numbers(1, 2, 3)},
		{note: "step does not reach upper", lower: 0, step: 2, upper: 5, exp: numbers(0, 2, 4)},
		{note: "negative step", lower: 3, step: -1, upper: 1, exp: numbers(3, 2, 1)},
		{note: "step away from upper", lower: 3, step: 1, upper: 1, exp: numbers()},
		{note: "single element", lower: 2, step: 5, upper: 2, exp: numbers(2)},
		{note: "fractional step", lower: 0, step: 0.25, upper: 1, exp: numbers(0, 0.25, 0.5, 0.75, 1)},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			r, err := NewRange(tc.lower, tc.step, tc.upper)
			if err != nil {
				t.Fatal(err)
			}
			result, err := r.ToList()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, result); diff != "" {
				t.Fatalf("Unexpected list (-want, +got):\n%s", diff)
			}
		})
	}
}

// For every valid range the list has floor((upper-lower)/step)+1 elements,
// starts at lower, ends within one step of upper and is restartable.
func TestSteppedRangeProperties(t *testing.T) {
	for _, lower := range []float64{-3, 0, 0.5, 7} {
		for _, step := range []float64{-2, -0.1, 0.1, 1, 3} {
			for _, upper := range []float64{-5, 0, 1, 10} {
				q := (upper - lower) / step
				if q < 0 {
					continue
				}
				r, err := NewRange(lower, step, upper)
				if err != nil {
					t.Fatal(err)
				}
				first, _ := r.ToList()
				second, _ := r.ToList()

				if exp := int(math.Floor(q+stepTolerance)) + 1; len(first) != exp {
					t.Fatalf("%v: expected %d elements but got %d", r, exp, len(first))
				}
				if !ValueEqual(first[0], Number(lower)) {
					t.Fatalf("%v: expected first element %v but got %v", r, lower, first[0])
				}
				last, _ := AsNumber(first[len(first)-1])
				if d := (upper - last) / step; d < -stepTolerance || d >= 1 {
					t.Fatalf("%v: last element %v not within one step of %v", r, last, upper)
				}
				if diff := cmp.Diff(first, second); diff != "" {
					t.Fatalf("%v: ToList is not deterministic:\n%s", r, diff)
				}
				if r.Len() != len(first) {
					t.Fatalf("%v: Len %d does not match list length %d", r, r.Len(), len(first))
				}
			}
		}
	}
}

func TestSteppedRangeTooLarge(t *testing.T) {
	r, err := NewRange(0, 1, 1e19)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != math.MaxInt {
		t.Fatalf("Expected Len to saturate at MaxInt but got %d", r.Len())
	}
	if !r.Contains(Number(5)) || !r.Contains(Number(1e18)) || r.Contains(Number(2.5)) {
		t.Fatalf("Unexpected membership in %v", r)
	}
	if _, err := r.ToList(); !IsError(NotEnumerableErr, err) {
		t.Fatalf("Expected not enumerable error, got %v", err)
	}

	r, _ = NewRange(0, 1, MaxRangeElements)
	if _, err := r.ToList(); !IsError(NotEnumerableErr, err) {
		t.Fatalf("Expected not enumerable error for %d elements, got %v", MaxRangeElements+1, err)
	}
}

func TestValueRangeConstructionErrors(t *testing.T) {
	if _, err := NewRange(1, 0, 5); !IsError(MalformedValueRangeErr, err) {
		t.Fatalf("Expected malformed range for zero step, got %v", err)
	}
	if _, err := NewRange(1, 1, math.Inf(1)); !IsError(MalformedValueRangeErr, err) {
		t.Fatalf("Expected malformed range for infinite bound, got %v", err)
	}
	if _, err := NewSet([]Value{Number(1), String("a")}); !IsError(MalformedValueRangeErr, err) {
		t.Fatalf("Expected malformed range for mixed set, got %v", err)
	}
	if _, err := NewSet([]Value{Vector{1, 2}}); !IsError(MalformedValueRangeErr, err) {
		t.Fatalf("Expected malformed range for vector element, got %v", err)
	}
	if _, err := NewInterval(2, 1, true, true); !IsError(MalformedValueRangeErr, err) {
		t.Fatalf("Expected malformed range for inverted interval, got %v", err)
	}
}

func TestValueRangeToList(t *testing.T) {
	set, err := NewSet([]Value{String("b"), String("a"), String("b")})
	if err != nil {
		t.Fatal(err)
	}
	list, _ := set.ToList()
	if diff := cmp.Diff([]Value{String("b"), String("a")}, list); diff != "" {
		t.Fatalf("Expected duplicates removed in order (-want, +got):\n%s", diff)
	}
	if set.Numeric() || set.Len() != 2 {
		t.Fatalf("Unexpected set %v", set)
	}

	list, _ = NewSingleValue(Number(4)).ToList()
	if diff := cmp.Diff(numbers(4), list); diff != "" {
		t.Fatalf("Unexpected single value list:\n%s", diff)
	}

	iv, _ := NewInterval(0, 10, true, false)
	if _, err := iv.ToList(); !IsError(NotEnumerableErr, err) {
		t.Fatalf("Expected not enumerable error, got %v", err)
	}
}

func TestValueRangeContains(t *testing.T) {
	closedOpen, _ := NewInterval(0, 10, true, false)
	atLeast, _ := NewInterval(5, math.Inf(1), true, false)
	steps, _ := NewRange(0, 0.1, 1)
	colors, _ := NewSet([]Value{String("red"), String("blue")})

	tests := []struct {
		note  string
		r     ValueRange
		v     Value
		exp   bool
	}{
		{note: "interval lower inclusive", r: closedOpen, v: Number(0), exp: true},
		{note: "interval upper exclusive", r: closedOpen, v: Number(10), exp: false},
		{note: "interval inside", r: closedOpen, v: Number(9.99), exp: true},
		{note: "interval string", r: closedOpen, v: String("x"), exp: false},
		{note: "unbounded interval", r: atLeast, v: Number(1e300), exp: true},
		{note: "unbounded interval below", r: atLeast, v: Number(4), exp: false},
		{note: "range element", r: steps, v: Number(0.3), exp: true},
		{note: "range between elements", r: steps, v: Number(0.35), exp: false},
		{note: "range past upper", r: steps, v: Number(1.1), exp: false},
		{note: "set member", r: colors, v: String("blue"), exp: true},
		{note: "set non member", r: colors, v: String("green"), exp: false},
		{note: "single value", r: NewSingleValue(Vector{1, 2}), v: Vector{1, 2}, exp: true},
		{note: "single value mismatch", r: NewSingleValue(Vector{1, 2}), v: Vector{1, 2, 3}, exp: false},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if result := tc.r.Contains(tc.v); result != tc.exp {
				t.Fatalf("Expected %v.Contains(%v) to be %v", tc.r, tc.v, tc.exp)
			}
		})
	}
}

func TestValueRangeString(t *testing.T) {
	iv, _ := NewInterval(math.Inf(-1), 3, false, true)
	r1, _ := NewRange(1, 1, 10)
	r2, _ := NewRange(0, 0.5, 2)
	set, _ := NewSet([]Value{String("a"), String("two words")})

	tests := []struct {
		r   ValueRange
		exp string
	}{
		{iv, "(-inf..3]"},
		{r1, "1:10"},
		{r2, "0:0.5:2"},
		{set, `{a, "two words"}`},
		{NewSingleValue(Vector{1, 2.5}), "(1, 2.5)"},
	}

	for _, tc := range tests {
		if tc.r.String() != tc.exp {
			t.Errorf("Expected %q but got %q", tc.exp, tc.r.String())
		}
	}
}

func TestTruthyValue(t *testing.T) {
	for _, v := range []Value{String("true"), String("TRUE"), String("yes"), String("1"), String("1.0"), Number(1)} {
		if !TruthyValue(v) {
			t.Errorf("Expected %v to be true-like", v)
		}
	}
	for _, v := range []Value{String("false"), String("no"), Number(0), Number(2), Vector{1}} {
		if TruthyValue(v) {
			t.Errorf("Expected %v not to be true-like", v)
		}
	}
}
