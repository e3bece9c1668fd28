// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"github.com/mlspace/mlspace/metrics"
)

// expander interprets init elements against the compiler's symbol table.
// Loop bodies are parsed once and evaluated once per domain element; each
// iteration binds the loop variable in a fresh scope, so a shadowed
// definition becomes visible again when the loop ends.
type expander struct {
	c      *Compiler
	warned map[*ForLoop]struct{}
}

func newExpander(c *Compiler) *expander {
	return &expander{c: c, warned: map[*ForLoop]struct{}{}}
}

func (x *expander) expand(elems []InitElem) (*Population, error) {
	pop := NewPopulation()
	for _, elem := range elems {
		switch elem := elem.(type) {
		case *InitEntry:
			if err := x.expandEntry(pop, elem); err != nil {
				return nil, err
			}
		case *ForLoop:
			sub, err := x.expandLoop(elem)
			if err != nil {
				return nil, err
			}
			pop.Merge(sub)
		}
	}
	return pop, nil
}

// expandEntry adds an entry to pop. Entries with a count of zero or less
// contribute nothing but are still checked.
func (x *expander) expandEntry(pop *Population, entry *InitEntry) error {
	n, err := x.c.evalCount(entry.Count)
	if err != nil {
		return withLocation(err, entry.Location)
	}

	var contents *Population
	if len(entry.Contents) > 0 {
		if contents, err = x.expand(entry.Contents); err != nil {
			return err
		}
	}

	e, err := x.c.compileInitEntity(entry.Entity, contents)
	if err != nil {
		return err
	}

	if n > 0 {
		pop.Add(e, n)
		x.c.metrics.Counter(metrics.InitEntities).Add(uint64(n))
	}
	return nil
}

func (x *expander) expandLoop(loop *ForLoop) (*Population, error) {
	domain, err := x.c.evalValueSet(loop.Domain)
	if err != nil {
		return nil, withLocation(err, loop.Location)
	}
	values, err := domain.ToList()
	if err != nil {
		return nil, withLocation(err, loop.Domain.Location)
	}

	if prev, ok := x.c.symbols.Peek(loop.Var); ok {
		if _, done := x.warned[loop]; !done {
			x.warned[loop] = struct{}{}
			x.c.warn(VariableOverrideWarning, loop.Location, "loop variable %v overrides %v = %v while the loop runs", loop.Var, loop.Var, prev)
		}
	}

	x.c.metrics.Histogram(metrics.InitLoopIterations).Update(int64(len(values)))

	pop := NewPopulation()
	for _, v := range values {
		x.c.symbols.Push()
		x.c.symbols.Define(loop.Var, NewSingleValue(v))
		sub, err := x.expand(loop.Body)
		x.c.symbols.Pop()
		if err != nil {
			return nil, err
		}
		pop.Merge(sub)
	}
	return pop, nil
}
