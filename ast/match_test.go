// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"testing"
)

func num(f float64) Quantity {
	return Immediate(Number(f))
}

func TestValueMatch(t *testing.T) {
	colors, _ := NewSet([]Value{String("red"), String("blue")})

	tests := []struct {
		note string
		m    ValueMatch
		v    Value
		exp  bool
	}{
		{note: "equal number", m: NewCompare(Equal, num(5)), v: Number(5), exp: true},
		{note: "equal number mismatch", m: NewCompare(Equal, num(5)), v: Number(6), exp: false},
		{note: "equal symbol", m: NewCompare(Equal, Immediate(String("on"))), v: String("on"), exp: true},
		{note: "equal symbol against number", m: NewCompare(Equal, Immediate(String("on"))), v: Number(1), exp: false},
		{note: "greater", m: NewCompare(GreaterThan, num(2)), v: Number(2.5), exp: true},
		{note: "greater at bound", m: NewCompare(GreaterThan, num(2)), v: Number(2), exp: false},
		{note: "greater or equal at bound", m: NewCompare(GreaterOrEqual, num(2)), v: Number(2), exp: true},
		{note: "less", m: NewCompare(LessThan, num(0)), v: Number(-1), exp: true},
		{note: "less or equal", m: NewCompare(LessOrEqual, num(0)), v: Number(1), exp: false},
		{note: "ordering symbol candidate", m: NewCompare(LessThan, num(3)), v: String("x"), exp: false},
		{note: "in closed", m: &InRange{Low: num(1), High: num(3), LowInc: true, HighInc: true}, v: Number(3), exp: true},
		{note: "in open upper", m: &InRange{Low: num(1), High: num(3), LowInc: true}, v: Number(3), exp: false},
		{note: "in open lower", m: &InRange{Low: num(1), High: num(3), HighInc: true}, v: Number(1), exp: false},
		{note: "in symbol", m: &InRange{Low: num(1), High: num(3)}, v: String("2"), exp: false},
		{note: "any in set", m: &AnyIn{Range: colors}, v: String("red"), exp: true},
		{note: "any in set mismatch", m: &AnyIn{Range: colors}, v: String("green"), exp: false},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			result, err := tc.m.Matches(tc.v, nil)
			if err != nil {
				t.Fatal(err)
			}
			if result != tc.exp {
				t.Fatalf("Expected %v on %v to be %v", tc.m, tc.v, tc.exp)
			}
			again, _ := tc.m.Matches(tc.v, nil)
			if again != result {
				t.Fatalf("Matching %v twice gave different results", tc.m)
			}
		})
	}
}

func TestValueMatchDeferredOperand(t *testing.T) {
	m := NewCompare(GreaterThan, Deferred(MustParseExpr("2 * k")))

	if _, err := m.Matches(Number(3), nil); !IsError(UnresolvedVariableErr, err) {
		t.Fatalf("Expected unresolved variable error, got %v", err)
	}

	ok, err := m.Matches(Number(3), NumberBindings(map[string]float64{"k": 1}))
	if err != nil || !ok {
		t.Fatalf("Expected 3 > 2*1, got %v, %v", ok, err)
	}
	ok, _ = m.Matches(Number(3), NumberBindings(map[string]float64{"k": 2}))
	if ok {
		t.Fatal("Expected 3 > 2*2 to fail")
	}
}

func TestValueMatchSymbolicOrdering(t *testing.T) {
	m := NewCompare(GreaterThan, Immediate(String("high")))
	if _, err := m.Matches(Number(1), nil); !IsError(CompileErr, err) {
		t.Fatalf("Expected error for symbolic ordering operand, got %v", err)
	}
}

func TestValueMatchSymbolicBound(t *testing.T) {
	m := &InRange{Low: num(0), High: Immediate(String("high")), LowInc: true}
	_, err := m.Matches(Number(1), nil)
	if !IsError(CompileErr, err) {
		t.Fatalf("Expected error for symbolic range bound, got %v", err)
	}
	if e := err.(*Error); e.Message != "quantity high is not numeric" {
		t.Fatalf("Unexpected message %q", e.Message)
	}

	loc := &Location{Row: 3, Col: 7}
	if e := withLocation(err, loc).(*Error); e.Location != loc {
		t.Fatalf("Expected error to take the pattern location, got %v", e.Location)
	}
}

func TestValueMatchString(t *testing.T) {
	tests := []struct {
		m   ValueMatch
		exp string
	}{
		{NewCompare(GreaterOrEqual, num(2)), ">= 2"},
		{NewCompare(Equal, Deferred(MustParseExpr("k+1"))), "== k + 1"},
		{&InRange{Low: num(0), High: num(1), LowInc: true}, "in [0, 1)"},
	}
	for _, tc := range tests {
		if tc.m.String() != tc.exp {
			t.Errorf("Expected %q but got %q", tc.exp, tc.m.String())
		}
	}
}

func TestEntityPatternMatches(t *testing.T) {
	model := MustCompileModel(`
		S(x: [0..10], y: {1, 2, 3}) <a: 0, b: 90°>;
		T();
		S(x: 5, y: 2) <a: free, b: occ> -> @ 1;
		S(x: in [4, 6]) <b: T> -> @ 1;
		S(y: > 1) -> @ 1;
	`)

	partner := NewInitEntity("T", nil, nil, nil)
	other := NewInitEntity("S", map[string]Value{"x": Number(0), "y": Number(1)}, nil, nil)
	candidate := func(x, y float64, b *InitEntity) *InitEntity {
		return NewInitEntity("S", map[string]Value{"x": Number(x), "y": Number(y)}, map[string]*InitEntity{"a": nil, "b": b}, nil)
	}

	tests := []struct {
		note      string
		rule      int
		candidate Instance
		exp       bool
	}{
		{note: "all constraints hold", rule: 0, candidate: candidate(5, 2, partner), exp: true},
		{note: "attribute outside declared domain", rule: 0, candidate: candidate(11, 2, partner), exp: false},
		{note: "attribute value differs", rule: 0, candidate: candidate(5, 3, partner), exp: false},
		{note: "occupied site is free", rule: 0, candidate: candidate(5, 2, nil), exp: false},
		{note: "wrong species", rule: 0, candidate: partner, exp: false},
		{note: "nil candidate", rule: 0, candidate: nil, exp: false},
		{note: "missing attribute", rule: 0, candidate: NewInitEntity("S", map[string]Value{"x": Number(5)}, nil, nil), exp: false},
		{note: "interval and bound partner", rule: 1, candidate: candidate(4, 1, partner), exp: true},
		{note: "bound to wrong species", rule: 1, candidate: candidate(4, 1, other), exp: false},
		{note: "unconstrained attributes", rule: 2, candidate: candidate(100, 3, nil), exp: true},
		{note: "comparison fails", rule: 2, candidate: candidate(0, 1, nil), exp: false},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			p := model.Rules.At(tc.rule).LHS.Entities[0]
			result, err := p.Matches(tc.candidate, nil)
			if err != nil {
				t.Fatal(err)
			}
			if result != tc.exp {
				t.Fatalf("Expected %v on %v to be %v", p, tc.candidate, tc.exp)
			}
		})
	}
}

func TestEntityPatternString(t *testing.T) {
	p := NewEntityPattern("S", nil)
	p.Attributes["y"] = NewCompare(Equal, num(2))
	p.Attributes["x"] = NewCompare(LessThan, num(5))
	p.Sites["b"] = SiteOccupied{}
	p.Sites["a"] = &SiteBoundTo{Pattern: NewEntityPattern("T", nil)}

	exp := "S(x: < 5, y: == 2)<a: T, b: occ>"
	if p.String() != exp {
		t.Fatalf("Expected %q but got %q", exp, p.String())
	}
}
