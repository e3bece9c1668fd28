// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// RuleSide is an ordered list of entities with at most one context entity.
// Entities written inside the context's brackets are marked Contained.
type RuleSide[E fmt.Stringer] struct {
	Entities  []E
	Contained []bool
	Context   int
}

// ContextEntity returns the context entity, if one was designated.
func (s RuleSide[E]) ContextEntity() (E, bool) {
	if s.Context < 0 || s.Context >= len(s.Entities) {
		var zero E
		return zero, false
	}
	return s.Entities[s.Context], true
}

// Len returns the number of entities including the context.
func (s RuleSide[E]) Len() int {
	return len(s.Entities)
}

func (s RuleSide[E]) String() string {
	var sb strings.Builder
	for i, e := range s.Entities {
		if i > 0 && !(i-1 == s.Context && s.Contained[i]) {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
		if i == s.Context {
			sb.WriteByte('[')
		}
		if (i == s.Context || s.Contained[i]) && (i+1 == len(s.Entities) || !s.Contained[i+1]) {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// RuleSideBuilder accumulates the entities of a rule side. The parser calls
// MakeLastContext when it sees "[" after an entity and CloseContext on the
// matching "]".
type RuleSideBuilder[E fmt.Stringer] struct {
	entities  []E
	contained []bool
	context   int
	open      bool
}

// NewRuleSideBuilder returns an empty builder.
func NewRuleSideBuilder[E fmt.Stringer]() *RuleSideBuilder[E] {
	return &RuleSideBuilder[E]{context: -1}
}

// AddEntity appends e. Entities added between MakeLastContext and
// CloseContext are contained in the context.
func (b *RuleSideBuilder[E]) AddEntity(e E) {
	b.entities = append(b.entities, e)
	b.contained = append(b.contained, b.open)
}

// MakeLastContext designates the most recently added entity as the context.
func (b *RuleSideBuilder[E]) MakeLastContext(loc *Location) error {
	switch {
	case len(b.entities) == 0:
		return NewError(MalformedRuleSideErr, loc, "context bracket without a preceding entity")
	case b.context >= 0:
		return NewError(MalformedRuleSideErr, loc, "rule side already has context %v", b.entities[b.context])
	}
	b.context = len(b.entities) - 1
	b.open = true
	return nil
}

// CloseContext closes the context bracket.
func (b *RuleSideBuilder[E]) CloseContext(loc *Location) error {
	if !b.open {
		return NewError(MalformedRuleSideErr, loc, "closing bracket without an open context")
	}
	b.open = false
	return nil
}

// IsContextSet returns true if a context entity was designated.
func (b *RuleSideBuilder[E]) IsContextSet() bool {
	return b.context >= 0
}

// IsContextOpen returns true if a closing bracket is expected.
func (b *RuleSideBuilder[E]) IsContextOpen() bool {
	return b.open
}

// Build returns the finished side. The builder may not be reused.
func (b *RuleSideBuilder[E]) Build(loc *Location) (RuleSide[E], error) {
	if b.open {
		return RuleSide[E]{}, NewError(MalformedRuleSideErr, loc, "context %v is not closed", b.entities[b.context])
	}
	return RuleSide[E]{
		Entities:  slices.Clip(b.entities),
		Contained: slices.Clip(b.contained),
		Context:   b.context,
	}, nil
}

// MapRuleSide converts every entity of s with f, keeping the context
// structure.
func MapRuleSide[E, F fmt.Stringer](s RuleSide[E], f func(E) (F, error)) (RuleSide[F], error) {
	out := RuleSide[F]{
		Entities:  make([]F, len(s.Entities)),
		Contained: slices.Clone(s.Contained),
		Context:   s.Context,
	}
	for i, e := range s.Entities {
		x, err := f(e)
		if err != nil {
			return RuleSide[F]{}, err
		}
		out.Entities[i] = x
	}
	return out, nil
}

// Rule is a compiled rule. Mass balance between the sides is not checked:
// rules are general rewrites.
type Rule struct {
	Name     string
	LHS      RuleSide[*EntityPattern]
	RHS      RuleSide[*ModEntity]
	Rate     Quantity
	Location *Location
}

// RHSContext returns the right-hand side context entity.
func (r *Rule) RHSContext() (*ModEntity, bool) {
	return r.RHS.ContextEntity()
}

func (r *Rule) String() string {
	var prefix string
	if r.Name != "" {
		prefix = r.Name + ": "
	}
	return prefix + r.LHS.String() + " -> " + r.RHS.String() + " @ " + r.Rate.String()
}

// MarshalJSON renders the rule sides in source syntax.
func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string `json:"name,omitempty"`
		LHS      string `json:"lhs"`
		RHS      string `json:"rhs"`
		Rate     string `json:"rate"`
		Deferred bool   `json:"deferred,omitempty"`
	}{r.Name, r.LHS.String(), r.RHS.String(), r.Rate.String(), r.Rate.IsDeferred()})
}

// RuleCollection is the ordered list of rules of a model. It is append-only
// while the model is compiled and read-only afterwards.
type RuleCollection struct {
	rules  []*Rule
	frozen bool
}

// Append adds r to the end of the collection.
func (c *RuleCollection) Append(r *Rule) {
	if c.frozen {
		panic("ast: append to frozen rule collection")
	}
	c.rules = append(c.rules, r)
}

// Freeze makes the collection read-only.
func (c *RuleCollection) Freeze() {
	c.frozen = true
}

// Len returns the number of rules.
func (c *RuleCollection) Len() int {
	return len(c.rules)
}

// At returns the i-th rule.
func (c *RuleCollection) At(i int) *Rule {
	return c.rules[i]
}

// All iterates the rules in declaration order.
func (c *RuleCollection) All() iter.Seq2[int, *Rule] {
	return slices.All(c.rules)
}

// MarshalJSON renders the rules as an array.
func (c *RuleCollection) MarshalJSON() ([]byte, error) {
	if c.rules == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.rules)
}
