// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// ValueMatch is a predicate over an attribute value used on rule left-hand
// sides.
type ValueMatch interface {
	// Matches reports whether v satisfies the predicate. Deferred operands
	// are evaluated against env.
	Matches(v Value, env Env) (bool, error)
	String() string
	valueMatch()
}

// CompareOp is a comparison operator.
type CompareOp string

// Comparison operators.
const (
	Equal          CompareOp = "=="
	GreaterThan    CompareOp = ">"
	GreaterOrEqual CompareOp = ">="
	LessThan       CompareOp = "<"
	LessOrEqual    CompareOp = "<="
)

// Compare matches values that compare to the operand with Op. Symbolic
// operands only support Equal.
type Compare struct {
	Op      CompareOp
	Operand Quantity
}

// InRange matches numbers between Low and High, with independent
// inclusivity for each bound.
type InRange struct {
	Low     Quantity
	High    Quantity
	LowInc  bool
	HighInc bool
}

// AnyIn matches any member of a value range.
type AnyIn struct {
	Range ValueRange
}

func (*Compare) valueMatch() {}
func (*InRange) valueMatch() {}
func (*AnyIn) valueMatch()   {}

// NewCompare returns a comparison predicate.
func NewCompare(op CompareOp, operand Quantity) *Compare {
	return &Compare{Op: op, Operand: operand}
}

// Matches compares v to the resolved operand.
func (m *Compare) Matches(v Value, env Env) (bool, error) {
	operand, err := m.Operand.Resolve(env)
	if err != nil {
		return false, err
	}
	if m.Op == Equal {
		return ValueEqual(v, operand), nil
	}
	y, ok := AsNumber(operand)
	if !ok {
		return false, NewError(CompileErr, nil, "operator %v requires a numeric operand, got %v", m.Op, operand)
	}
	x, ok := AsNumber(v)
	if !ok {
		return false, nil
	}
	switch m.Op {
	case GreaterThan:
		return x > y, nil
	case GreaterOrEqual:
		return x >= y, nil
	case LessThan:
		return x < y, nil
	case LessOrEqual:
		return x <= y, nil
	}
	return false, NewError(CompileErr, nil, "unknown comparison operator %v", m.Op)
}

func (m *Compare) String() string {
	return string(m.Op) + " " + m.Operand.String()
}

// Matches reports whether v lies between the resolved bounds.
func (m *InRange) Matches(v Value, env Env) (bool, error) {
	lo, err := m.Low.Number(env)
	if err != nil {
		return false, err
	}
	hi, err := m.High.Number(env)
	if err != nil {
		return false, err
	}
	x, ok := AsNumber(v)
	if !ok {
		return false, nil
	}
	if x < lo || (x == lo && !m.LowInc) {
		return false, nil
	}
	if x > hi || (x == hi && !m.HighInc) {
		return false, nil
	}
	return true, nil
}

func (m *InRange) String() string {
	l, r := "(", ")"
	if m.LowInc {
		l = "["
	}
	if m.HighInc {
		r = "]"
	}
	return "in " + l + m.Low.String() + ", " + m.High.String() + r
}

// Matches reports range membership.
func (m *AnyIn) Matches(v Value, _ Env) (bool, error) {
	return m.Range.Contains(v), nil
}

func (m *AnyIn) String() string {
	return m.Range.String()
}
