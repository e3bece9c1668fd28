// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"maps"
	"strings"
)

// ValueModifier describes how a rule right-hand side changes one attribute.
type ValueModifier interface {
	String() string
	valueModifier()
}

// AbsoluteSet replaces the attribute value with Operand.
type AbsoluteSet struct {
	Operand Quantity
}

// Relative combines a numeric base value with Operand using Op, one of
// + - * /.
type Relative struct {
	Op      Operator
	Operand Quantity
}

// Redraw attaches Range to the attribute; the simulation engine draws the
// actual value.
type Redraw struct {
	Range ValueRange
}

func (*AbsoluteSet) valueModifier() {}
func (*Relative) valueModifier()    {}
func (*Redraw) valueModifier()      {}

func (m *AbsoluteSet) String() string { return ": " + m.Operand.String() }
func (m *Relative) String() string    { return " " + string(m.Op) + "= " + m.Operand.String() }
func (m *Redraw) String() string      { return ": " + m.Range.String() }

// BindingAction is an intent on a binding site emitted by a rule
// right-hand side. The core never executes it.
type BindingAction int

// Binding actions.
const (
	Bind BindingAction = iota + 1
	Release
	Replace
)

func (a BindingAction) String() string {
	switch a {
	case Bind:
		return "bind"
	case Release:
		return "release"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// MarshalText renders the action keyword.
func (a BindingAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ModEntity is a rule right-hand side entity: the species it produces, the
// attribute modifiers and the binding intents.
type ModEntity struct {
	Species   string
	Modifiers map[string]ValueModifier
	Bindings  map[string]BindingAction
	Location  *Location
}

// NewModEntity returns a construction of species without modifiers.
func NewModEntity(species string, loc *Location) *ModEntity {
	return &ModEntity{
		Species:   species,
		Modifiers: map[string]ValueModifier{},
		Bindings:  map[string]BindingAction{},
		Location:  loc,
	}
}

// Apply computes the attribute values of the produced entity from base.
// Attributes without a modifier are copied. base is not modified.
func (m *ModEntity) Apply(base map[string]Value, env Env) (map[string]Value, error) {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]Value, len(m.Modifiers))
	}
	for _, name := range sortedKeys(m.Modifiers) {
		switch mod := m.Modifiers[name].(type) {
		case *AbsoluteSet:
			v, err := mod.Operand.Resolve(env)
			if err != nil {
				return nil, err
			}
			out[name] = v
		case *Relative:
			x, ok := AsNumber(base[name])
			if !ok {
				return nil, NewError(UnresolvedVariableErr, m.Location, "relative modifier on %v.%v requires a numeric base value", m.Species, name)
			}
			y, err := mod.Operand.Number(env)
			if err != nil {
				return nil, err
			}
			out[name] = Number(applyOperator(mod.Op, x, y))
		case *Redraw:
			out[name] = RangeValue{Range: mod.Range}
		}
	}
	return out, nil
}

// BindingIntents returns a copy of the binding actions, keyed by site.
func (m *ModEntity) BindingIntents() map[string]BindingAction {
	return maps.Clone(m.Bindings)
}

func (m *ModEntity) String() string {
	var sb strings.Builder
	sb.WriteString(m.Species)
	if len(m.Modifiers) > 0 {
		sb.WriteByte('(')
		for i, name := range sortedKeys(m.Modifiers) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name + m.Modifiers[name].String())
		}
		sb.WriteByte(')')
	}
	if len(m.Bindings) > 0 {
		sb.WriteByte('<')
		for i, site := range sortedKeys(m.Bindings) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(site + ": " + m.Bindings[site].String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

func applyOperator(op Operator, x, y float64) float64 {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		return x / y
	}
	return x
}
