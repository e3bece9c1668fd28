// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func TestSpeciesRegistry(t *testing.T) {
	r := NewSpeciesRegistry()
	domain, _ := NewInterval(0, 10, true, true)
	cell := &Species{Name: "Cell", Attributes: []Attribute{{Name: "size", Domain: domain}}, Sites: []Site{{Name: "left"}, {Name: "right", Angle: 1}}}

	if err := r.Register(cell); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&Species{Name: "Nucleus"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&Species{Name: "Cell"}); !IsError(CompileErr, err) {
		t.Fatalf("Expected duplicate species error, got %v", err)
	}

	if !r.Has("Cell") || r.Has("cell") {
		t.Fatal("Expected case-sensitive species lookup")
	}
	if names := slices.Collect(r.Names()); !slices.Equal(names, []string{"Cell", "Nucleus"}) {
		t.Fatalf("Expected declaration order, got %v", names)
	}
	if r.Len() != 2 {
		t.Fatalf("Expected two species, got %d", r.Len())
	}

	_, err := r.Resolve("Cel", nil)
	if err == nil || err.Code != UndeclaredSpeciesErr {
		t.Fatalf("Expected undeclared species error, got %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "Cell"?`) {
		t.Fatalf("Expected suggestion in %q", err.Error())
	}
}

func TestSpeciesChecks(t *testing.T) {
	domain, _ := NewInterval(0, 10, true, true)
	cell := &Species{Name: "Cell", Attributes: []Attribute{{Name: "size", Domain: domain}}, Sites: []Site{{Name: "left"}}}

	if err := cell.CheckAttribute("size", nil); err != nil {
		t.Fatal(err)
	}
	if err := cell.CheckAttribute("sise", nil); err == nil || err.Code != UnknownAttributeErr || !strings.Contains(err.Error(), `"size"`) {
		t.Fatalf("Expected unknown attribute error with suggestion, got %v", err)
	}
	if err := cell.CheckSite(WildcardSite, nil); err != nil {
		t.Fatal(err)
	}
	if err := cell.CheckSite("right", nil); err == nil || err.Code != UnknownBindingSiteErr {
		t.Fatalf("Expected unknown binding site error, got %v", err)
	}

	bs, err := json.Marshal(cell)
	if err != nil {
		t.Fatal(err)
	}
	exp := `{"name":"Cell","attributes":[{"name":"size","domain":"[0..10]"}],"sites":[{"name":"left","angle":0}]}`
	if string(bs) != exp {
		t.Fatalf("Expected %s but got %s", exp, bs)
	}
}
