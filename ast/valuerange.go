// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"math"
	"strings"
)

// stepTolerance absorbs floating point error when counting the elements of a
// stepped range, e.g. 0:0.1:1 has 11 elements.
const stepTolerance = 1e-9

// MaxRangeElements bounds the number of elements ToList materializes for a
// stepped range.
const MaxRangeElements = 1 << 24

// ValueRange is the domain of a variable, an attribute declaration or a loop:
// a SingleValue, an Interval, a SteppedRange or a Set.
type ValueRange interface {
	// Contains reports whether v lies in the range.
	Contains(v Value) bool
	// ToList materializes the range as a finite ordered list. Intervals are
	// not enumerable.
	ToList() ([]Value, error)
	String() string
	valueRange()
}

// SingleValue is a range holding exactly one value.
type SingleValue struct {
	Value Value
}

// Interval is a continuous numeric range. Bounds may be infinite; both
// inclusivity flags are always recorded.
type Interval struct {
	Lower    float64
	Upper    float64
	IncLower bool
	IncUpper bool
}

// SteppedRange is the arithmetic sequence lower, lower+step, ... bounded by
// upper.
type SteppedRange struct {
	Lower float64
	Step  float64
	Upper float64
}

// Set is a finite set of numbers or of symbols. Elements keep their
// declaration order.
type Set struct {
	elems   []Value
	numeric bool
}

func (*SingleValue) valueRange()  {}
func (*Interval) valueRange()     {}
func (*SteppedRange) valueRange() {}
func (*Set) valueRange()          {}

// NewSingleValue returns a range holding only v.
func NewSingleValue(v Value) *SingleValue {
	return &SingleValue{Value: v}
}

// NewInterval returns the interval between lower and upper.
func NewInterval(lower, upper float64, incLower, incUpper bool) (*Interval, error) {
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return nil, NewError(MalformedValueRangeErr, nil, "interval bound is not a number")
	}
	if lower > upper {
		return nil, NewError(MalformedValueRangeErr, nil, "interval lower bound %v exceeds upper bound %v", formatFloat(lower), formatFloat(upper))
	}
	return &Interval{Lower: lower, Upper: upper, IncLower: incLower, IncUpper: incUpper}, nil
}

// NewRange returns the stepped range from lower to upper. The two-number form
// a:b is NewRange(a, 1, b).
func NewRange(lower, step, upper float64) (*SteppedRange, error) {
	if step == 0 {
		return nil, NewError(MalformedValueRangeErr, nil, "range %v:%v:%v has a zero step", formatFloat(lower), formatFloat(step), formatFloat(upper))
	}
	for _, f := range []float64{lower, step, upper} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, NewError(MalformedValueRangeErr, nil, "range bounds and step must be finite")
		}
	}
	return &SteppedRange{Lower: lower, Step: step, Upper: upper}, nil
}

// NewSet returns a set of the given elements. The elements must be all
// numbers or all strings; duplicates are dropped.
func NewSet(elems []Value) (*Set, error) {
	s := &Set{}
	for i, e := range elems {
		var numeric bool
		switch e.(type) {
		case Number:
			numeric = true
		case String:
		default:
			return nil, NewError(MalformedValueRangeErr, nil, "set element %v is neither a number nor a symbol", e)
		}
		if i == 0 {
			s.numeric = numeric
		} else if numeric != s.numeric {
			return nil, NewError(MalformedValueRangeErr, nil, "set mixes numeric and symbolic elements")
		}
		if !s.Contains(e) {
			s.elems = append(s.elems, e)
		}
	}
	return s, nil
}

// Contains reports whether v equals the held value.
func (r *SingleValue) Contains(v Value) bool {
	return ValueEqual(r.Value, v)
}

// ToList returns the held value as a one element list.
func (r *SingleValue) ToList() ([]Value, error) {
	return []Value{r.Value}, nil
}

func (r *SingleValue) String() string {
	return r.Value.String()
}

// Contains reports whether v is a number inside the interval.
func (r *Interval) Contains(v Value) bool {
	f, ok := AsNumber(v)
	if !ok {
		return false
	}
	if f < r.Lower || (f == r.Lower && !r.IncLower) {
		return false
	}
	if f > r.Upper || (f == r.Upper && !r.IncUpper) {
		return false
	}
	return true
}

// ToList always fails: an interval is continuous.
func (r *Interval) ToList() ([]Value, error) {
	return nil, NewError(NotEnumerableErr, nil, "interval %v cannot be enumerated", r)
}

func (r *Interval) String() string {
	var sb strings.Builder
	if r.IncLower {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	sb.WriteString(formatFloat(r.Lower))
	sb.WriteString("..")
	sb.WriteString(formatFloat(r.Upper))
	if r.IncUpper {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}

// lastIndex returns floor((upper-lower)/step) as a float, or -1 if the step
// leads away from upper.
func (r *SteppedRange) lastIndex() float64 {
	q := (r.Upper - r.Lower) / r.Step
	if q < -stepTolerance {
		return -1
	}
	return math.Floor(q + stepTolerance)
}

// Len returns the number of elements of the range, saturating at
// math.MaxInt.
func (r *SteppedRange) Len() int {
	last := r.lastIndex()
	if last >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(last) + 1
}

// Contains reports whether v is one of the elements of the range.
func (r *SteppedRange) Contains(v Value) bool {
	f, ok := AsNumber(v)
	if !ok {
		return false
	}
	q := (f - r.Lower) / r.Step
	if q < -stepTolerance || q > r.lastIndex()+stepTolerance {
		return false
	}
	return math.Abs(q-math.Round(q)) <= stepTolerance
}

// ToList returns lower, lower+step, ... while not past upper. The sequence is
// recomputed from the bounds on every call. Ranges with more than
// MaxRangeElements elements are not enumerable.
func (r *SteppedRange) ToList() ([]Value, error) {
	if r.lastIndex() >= MaxRangeElements {
		return nil, NewError(NotEnumerableErr, nil, "range %v has more than %d elements", r, MaxRangeElements)
	}
	n := r.Len()
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = Number(r.Lower + float64(i)*r.Step)
	}
	return out, nil
}

func (r *SteppedRange) String() string {
	if r.Step == 1 {
		return formatFloat(r.Lower) + ":" + formatFloat(r.Upper)
	}
	return formatFloat(r.Lower) + ":" + formatFloat(r.Step) + ":" + formatFloat(r.Upper)
}

// Numeric returns true if the set holds numbers.
func (s *Set) Numeric() bool {
	return s.numeric
}

// Len returns the number of distinct elements.
func (s *Set) Len() int {
	return len(s.elems)
}

// Contains reports whether v is an element of the set.
func (s *Set) Contains(v Value) bool {
	for _, e := range s.elems {
		if ValueEqual(e, v) {
			return true
		}
	}
	return false
}

// ToList returns a copy of the elements in declaration order.
func (s *Set) ToList() ([]Value, error) {
	out := make([]Value, len(s.elems))
	copy(out, s.elems)
	return out, nil
}

func (s *Set) String() string {
	parts := make([]string, len(s.elems))
	for i := range s.elems {
		parts[i] = s.elems[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SingletonNumber returns the number held by r when r is a SingleValue
// holding a Number.
func SingletonNumber(r ValueRange) (float64, bool) {
	if sv, ok := r.(*SingleValue); ok {
		return AsNumber(sv.Value)
	}
	return 0, false
}
