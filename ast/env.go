// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"maps"
	"slices"
)

// Env resolves variable names to their currently bound ranges. Deferred
// expressions are evaluated against an Env supplied by the caller, e.g. the
// simulation engine binding attribute values of matched entities.
type Env interface {
	Lookup(name string) (ValueRange, bool)
}

// Diagnostics is implemented by environments that accept non-fatal
// diagnostics raised during evaluation.
type Diagnostics interface {
	Warn(code ErrCode, loc *Location, f string, a ...any)
}

// Bindings is a plain map environment.
type Bindings map[string]ValueRange

// Lookup returns the range bound to name.
func (b Bindings) Lookup(name string) (ValueRange, bool) {
	r, ok := b[name]
	return r, ok
}

// NumberBindings returns an environment binding each name to a numeric
// singleton.
func NumberBindings(values map[string]float64) Bindings {
	b := make(Bindings, len(values))
	for k, v := range values {
		b[k] = NewSingleValue(Number(v))
	}
	return b
}

type scope struct {
	vars   map[string]ValueRange
	parent *scope
}

// SymbolTable maps variable names to their active ranges. Loop variables are
// bound in nested scopes; popping a scope makes shadowed bindings visible
// again. The table tracks which variables were read.
type SymbolTable struct {
	globals *scope
	current *scope
	used    map[string]struct{}
	warn    func(code ErrCode, loc *Location, f string, a ...any)
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	g := &scope{vars: map[string]ValueRange{}}
	return &SymbolTable{
		globals: g,
		current: g,
		used:    map[string]struct{}{},
	}
}

// WithWarnings sets the sink for diagnostics raised during evaluation.
func (t *SymbolTable) WithWarnings(f func(code ErrCode, loc *Location, f string, a ...any)) *SymbolTable {
	t.warn = f
	return t
}

// Define binds name in the innermost scope.
func (t *SymbolTable) Define(name string, r ValueRange) {
	t.current.vars[name] = r
}

// Lookup returns the innermost binding of name. Only global bindings are
// marked used; loop variables are not model variables.
func (t *SymbolTable) Lookup(name string) (ValueRange, bool) {
	r, s, ok := t.resolve(name)
	if ok && s == t.globals {
		t.used[name] = struct{}{}
	}
	return r, ok
}

// Peek returns the innermost binding of name without marking it used.
func (t *SymbolTable) Peek(name string) (ValueRange, bool) {
	r, _, ok := t.resolve(name)
	return r, ok
}

func (t *SymbolTable) resolve(name string) (ValueRange, *scope, bool) {
	for s := t.current; s != nil; s = s.parent {
		if r, ok := s.vars[name]; ok {
			return r, s, true
		}
	}
	return nil, nil, false
}

// MarkUsed records name as used without resolving it.
func (t *SymbolTable) MarkUsed(name string) {
	t.used[name] = struct{}{}
}

// Push opens a new innermost scope.
func (t *SymbolTable) Push() {
	t.current = &scope{vars: map[string]ValueRange{}, parent: t.current}
}

// Pop discards the innermost scope. The global scope is never popped.
func (t *SymbolTable) Pop() {
	if t.current.parent != nil {
		t.current = t.current.parent
	}
}

// Depth returns the number of scopes pushed over the global scope.
func (t *SymbolTable) Depth() int {
	n := 0
	for s := t.current; s.parent != nil; s = s.parent {
		n++
	}
	return n
}

// Globals returns a copy of the global bindings.
func (t *SymbolTable) Globals() map[string]ValueRange {
	return maps.Clone(t.globals.vars)
}

// Used returns the sorted names of the global variables read so far.
func (t *SymbolTable) Used() []string {
	return slices.Sorted(maps.Keys(t.used))
}

// Warn forwards a diagnostic to the configured sink.
func (t *SymbolTable) Warn(code ErrCode, loc *Location, f string, a ...any) {
	if t.warn != nil {
		t.warn(code, loc, f, a...)
	}
}
