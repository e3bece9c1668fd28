// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInitEntityKey(t *testing.T) {
	nucleus := NewInitEntity("Nucleus", nil, nil, nil)
	contents := NewPopulation()
	contents.Add(NewInitEntity("A", map[string]Value{"x": Number(1)}, nil, nil), 3)

	tests := []struct {
		note string
		e    *InitEntity
		exp  string
	}{
		{note: "bare", e: NewInitEntity("A", nil, nil, nil), exp: "A()"},
		{note: "sorted attributes", e: NewInitEntity("A", map[string]Value{"y": String("on"), "x": Number(2)}, nil, nil), exp: "A(x: 2, y: on)"},
		{note: "partners", e: NewInitEntity("A", nil, map[string]*InitEntity{"b": nucleus, "a": nil}, nil), exp: "A()<a: free, b: Nucleus()>"},
		{note: "contents", e: NewInitEntity("Cell", nil, nil, contents), exp: "Cell()[3 A(x: 1)]"},
		{note: "empty contents", e: NewInitEntity("Cell", nil, nil, NewPopulation()), exp: "Cell()"},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if tc.e.Key() != tc.exp {
				t.Fatalf("Expected %q but got %q", tc.exp, tc.e.Key())
			}
		})
	}
}

func TestInitEntityPartner(t *testing.T) {
	b := NewInitEntity("B", nil, nil, nil)
	a := NewInitEntity("A", map[string]Value{"x": Number(1)}, map[string]*InitEntity{"s": b, "t": nil}, nil)

	if p, ok := a.Partner("s"); !ok || p.SpeciesName() != "B" {
		t.Fatalf("Expected partner B at s, got %v, %v", p, ok)
	}
	if _, ok := a.Partner("t"); ok {
		t.Fatal("Expected free site t")
	}
	if _, ok := a.Partner("u"); ok {
		t.Fatal("Expected undeclared site to be unbound")
	}
	if diff := cmp.Diff([]string{"x"}, a.Attributes()); diff != "" {
		t.Fatal(diff)
	}
}

func TestPopulation(t *testing.T) {
	p := NewPopulation()
	a1 := NewInitEntity("A", map[string]Value{"x": Number(1)}, nil, nil)
	a1again := NewInitEntity("A", map[string]Value{"x": Number(1)}, nil, nil)
	b := NewInitEntity("B", nil, nil, nil)

	p.Add(a1, 2)
	p.Add(a1again, 3)
	p.Add(b, 0)
	p.Add(b, -4)

	if p.Len() != 1 || p.Get(a1) != 5 {
		t.Fatalf("Expected identical entities to be merged: %v", p)
	}

	other := NewPopulation()
	other.Add(b, 1)
	other.Add(a1, 1)
	p.Merge(other)

	exp := map[string]int{"A(x: 1)": 6, "B()": 1}
	if diff := cmp.Diff(exp, p.Counts()); diff != "" {
		t.Fatalf("Unexpected counts (-want, +got):\n%s", diff)
	}
	if p.Total() != 7 {
		t.Fatalf("Expected total of 7 but got %d", p.Total())
	}
	if p.String() != "{6 A(x: 1), 1 B()}" {
		t.Fatalf("Unexpected string %v", p)
	}

	bs, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != `[{"entity":"A(x: 1)","count":6},{"entity":"B()","count":1}]` {
		t.Fatalf("Unexpected JSON %s", bs)
	}
}
