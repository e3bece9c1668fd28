// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"math"
	"strings"
)

// Expr is a numeric expression tree. Trees are immutable once parsed and may
// be evaluated any number of times against different environments.
type Expr interface {
	// Eval computes the value of the expression, resolving variable
	// references through env.
	Eval(env Env) (float64, error)
	Loc() *Location
	String() string
	expr()
}

// Constants are resolved when no variable of the same name is visible.
var Constants = map[string]float64{
	"PI": math.Pi,
	"E":  math.E,
}

type (
	// Literal is a numeric literal.
	Literal struct {
		Value    float64
		Location *Location
	}

	// Ref is a reference to a named variable.
	Ref struct {
		Name     string
		Location *Location
	}

	// CountRef is "#Species", the population count of a species. It is
	// resolved through the environment under the name "#Species".
	CountRef struct {
		Species  string
		Location *Location
	}

	// UnaryExpr is a prefix sign.
	UnaryExpr struct {
		Op       Operator
		X        Expr
		Location *Location
	}

	// BinaryExpr is one of + - * / ^.
	BinaryExpr struct {
		Op       Operator
		X, Y     Expr
		Location *Location
	}

	// CallExpr is a builtin call: min or max.
	CallExpr struct {
		Func     string
		Args     []Expr
		Location *Location
	}

	// PostfixExpr is one of the postfix operators ², ³ and °.
	PostfixExpr struct {
		Op       Operator
		X        Expr
		Location *Location
	}

	// TruncExpr is a bracket group "[x]" which truncates its value toward
	// zero.
	TruncExpr struct {
		X        Expr
		Location *Location
	}
)

// Operator identifies an arithmetic operator.
type Operator string

// Operators.
const (
	OpAdd     Operator = "+"
	OpSub     Operator = "-"
	OpMul     Operator = "*"
	OpDiv     Operator = "/"
	OpPow     Operator = "^"
	OpSquare  Operator = "²"
	OpCube    Operator = "³"
	OpDegrees Operator = "°"
)

func (*Literal) expr()     {}
func (*Ref) expr()         {}
func (*CountRef) expr()    {}
func (*UnaryExpr) expr()   {}
func (*BinaryExpr) expr()  {}
func (*CallExpr) expr()    {}
func (*PostfixExpr) expr() {}
func (*TruncExpr) expr()   {}

func (e *Literal) Loc() *Location     { return e.Location }
func (e *Ref) Loc() *Location         { return e.Location }
func (e *CountRef) Loc() *Location    { return e.Location }
func (e *UnaryExpr) Loc() *Location   { return e.Location }
func (e *BinaryExpr) Loc() *Location  { return e.Location }
func (e *CallExpr) Loc() *Location    { return e.Location }
func (e *PostfixExpr) Loc() *Location { return e.Location }
func (e *TruncExpr) Loc() *Location   { return e.Location }

// Eval returns the literal value.
func (e *Literal) Eval(Env) (float64, error) {
	return e.Value, nil
}

// Eval resolves the variable to a numeric singleton.
func (e *Ref) Eval(env Env) (float64, error) {
	return resolveNumber(env, e.Name, e.Location)
}

// Eval resolves the species count through the environment.
func (e *CountRef) Eval(env Env) (float64, error) {
	return resolveNumber(env, "#"+e.Species, e.Location)
}

// Eval applies the sign.
func (e *UnaryExpr) Eval(env Env) (float64, error) {
	x, err := e.X.Eval(env)
	if err != nil {
		return 0, err
	}
	if e.Op == OpSub {
		return -x, nil
	}
	return x, nil
}

// Eval applies the operator. Division by zero follows IEEE 754.
func (e *BinaryExpr) Eval(env Env) (float64, error) {
	x, err := e.X.Eval(env)
	if err != nil {
		return 0, err
	}
	y, err := e.Y.Eval(env)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case OpAdd:
		return x + y, nil
	case OpSub:
		return x - y, nil
	case OpMul:
		return x * y, nil
	case OpDiv:
		return x / y, nil
	case OpPow:
		return math.Pow(x, y), nil
	}
	return 0, NewError(CompileErr, e.Location, "unknown operator %v", e.Op)
}

// Eval computes min or max over the arguments.
func (e *CallExpr) Eval(env Env) (float64, error) {
	var result float64
	for i, arg := range e.Args {
		x, err := arg.Eval(env)
		if err != nil {
			return 0, err
		}
		switch {
		case i == 0:
			result = x
		case e.Func == "min":
			result = math.Min(result, x)
		case e.Func == "max":
			result = math.Max(result, x)
		default:
			return 0, NewError(CompileErr, e.Location, "unknown function %v", e.Func)
		}
	}
	return result, nil
}

// Eval applies the postfix operator.
func (e *PostfixExpr) Eval(env Env) (float64, error) {
	x, err := e.X.Eval(env)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case OpSquare:
		return x * x, nil
	case OpCube:
		return x * x * x, nil
	case OpDegrees:
		return x * math.Pi / 180, nil
	}
	return 0, NewError(CompileErr, e.Location, "unknown operator %v", e.Op)
}

// Eval truncates the inner value toward zero. A lossy truncation is reported
// to the environment when it accepts diagnostics.
func (e *TruncExpr) Eval(env Env) (float64, error) {
	x, err := e.X.Eval(env)
	if err != nil {
		return 0, err
	}
	t := math.Trunc(x)
	if t != x {
		if d, ok := env.(Diagnostics); ok {
			d.Warn(TruncationWarning, e.Location, "integer coercion of %v truncates %v to %v", e.X, formatFloat(x), formatFloat(t))
		}
	}
	return t, nil
}

func resolveNumber(env Env, name string, loc *Location) (float64, error) {
	if env != nil {
		if r, ok := env.Lookup(name); ok {
			if f, ok := SingletonNumber(r); ok {
				return f, nil
			}
			return 0, NewError(UnresolvedVariableErr, loc, "variable %v is not a single numeric value: %v", name, r)
		}
	}
	if f, ok := Constants[name]; ok {
		return f, nil
	}
	return 0, NewError(UnresolvedVariableErr, loc, "variable %v is not defined", name)
}

// precedence levels used when rendering expressions.
const (
	precAdd = iota + 1
	precMul
	precUnary
	precPow
	precAtom
)

func precedence(e Expr) int {
	switch e := e.(type) {
	case *BinaryExpr:
		switch e.Op {
		case OpAdd, OpSub:
			return precAdd
		case OpMul, OpDiv:
			return precMul
		default:
			return precPow
		}
	case *UnaryExpr:
		return precUnary
	case *PostfixExpr:
		return precPow
	}
	return precAtom
}

func wrap(e Expr, min int) string {
	if precedence(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func (e *Literal) String() string {
	return formatFloat(e.Value)
}

func (e *Ref) String() string {
	return e.Name
}

func (e *CountRef) String() string {
	return "#" + e.Species
}

func (e *UnaryExpr) String() string {
	return string(e.Op) + wrap(e.X, precUnary)
}

func (e *BinaryExpr) String() string {
	p := precedence(e)
	switch e.Op {
	case OpPow:
		// right associative
		return wrap(e.X, p+1) + "^" + wrap(e.Y, precUnary)
	default:
		// left associative
		return wrap(e.X, p) + " " + string(e.Op) + " " + wrap(e.Y, p+1)
	}
}

func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i := range e.Args {
		args[i] = e.Args[i].String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

func (e *PostfixExpr) String() string {
	return wrap(e.X, precAtom) + string(e.Op)
}

func (e *TruncExpr) String() string {
	return "[" + e.X.String() + "]"
}
