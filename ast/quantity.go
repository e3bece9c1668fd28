// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// Quantity is either an immediate value, computed once when the model is
// compiled, or a deferred expression tree evaluated later against an
// explicit environment. The choice is made once at construction and kept.
type Quantity struct {
	expr     Expr
	value    Value
	deferred bool
}

// Immediate returns a quantity holding v.
func Immediate(v Value) Quantity {
	return Quantity{value: v}
}

// Deferred returns a quantity evaluating e on demand.
func Deferred(e Expr) Quantity {
	return Quantity{expr: e, deferred: true}
}

// NewQuantity evaluates e against env if every variable it references is
// currently a numeric singleton, and defers it otherwise.
func NewQuantity(e Expr, env Env) (Quantity, error) {
	f, err := e.Eval(env)
	if err != nil {
		if IsError(UnresolvedVariableErr, err) {
			return Deferred(e), nil
		}
		return Quantity{}, err
	}
	return Quantity{expr: e, value: Number(f)}, nil
}

// IsDeferred returns true if the quantity is evaluated on demand.
func (q Quantity) IsDeferred() bool {
	return q.deferred
}

// Expr returns the expression the quantity was built from, if any.
func (q Quantity) Expr() Expr {
	return q.expr
}

// Value returns the immediate value. The second result is false for deferred
// quantities.
func (q Quantity) Value() (Value, bool) {
	return q.value, !q.deferred
}

// Resolve returns the value of the quantity, evaluating deferred trees
// against env.
func (q Quantity) Resolve(env Env) (Value, error) {
	if !q.deferred {
		return q.value, nil
	}
	f, err := q.expr.Eval(env)
	if err != nil {
		return nil, err
	}
	return Number(f), nil
}

// Number resolves the quantity and requires a numeric result.
func (q Quantity) Number(env Env) (float64, error) {
	v, err := q.Resolve(env)
	if err != nil {
		return 0, err
	}
	f, ok := AsNumber(v)
	if !ok {
		var loc *Location
		if q.expr != nil {
			loc = q.expr.Loc()
		}
		return 0, NewError(CompileErr, loc, "quantity %v is not numeric", q)
	}
	return f, nil
}

// FreeVars returns the names a deferred quantity needs from its environment.
func (q Quantity) FreeVars() []string {
	if !q.deferred {
		return nil
	}
	return Vars(q.expr)
}

func (q Quantity) String() string {
	if q.deferred {
		return q.expr.String()
	}
	if q.value == nil {
		return "<nil>"
	}
	return q.value.String()
}
