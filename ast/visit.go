// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"slices"
)

// GenericVisitor provides a utility to walk over expression nodes using a
// closure. If the closure returns true, the visitor will not walk over the
// nodes under x.
type GenericVisitor struct {
	f func(x Expr) bool
}

// NewGenericVisitor returns a new GenericVisitor that will invoke the function
// f on expression nodes.
func NewGenericVisitor(f func(x Expr) bool) *GenericVisitor {
	return &GenericVisitor{f}
}

// Walk iterates the expression tree by calling the function f on the
// GenericVisitor before recursing. Contrary to the generic Walk, this does
// not require allocating the visitor from heap.
func (vis *GenericVisitor) Walk(x Expr) {
	if x == nil || vis.f(x) {
		return
	}

	switch x := x.(type) {
	case *UnaryExpr:
		vis.Walk(x.X)
	case *BinaryExpr:
		vis.Walk(x.X)
		vis.Walk(x.Y)
	case *CallExpr:
		for _, arg := range x.Args {
			vis.Walk(arg)
		}
	case *PostfixExpr:
		vis.Walk(x.X)
	case *TruncExpr:
		vis.Walk(x.X)
	}
}

// WalkRefs calls the function f on all variable references under x. If the
// function f returns true, AST nodes under the last node will not be visited.
func WalkRefs(x Expr, f func(*Ref) bool) {
	NewGenericVisitor(func(x Expr) bool {
		if r, ok := x.(*Ref); ok {
			return f(r)
		}
		return false
	}).Walk(x)
}

// Vars returns the sorted, de-duplicated names resolved through the
// environment when x is evaluated. Species counts appear as "#Species".
func Vars(x Expr) []string {
	var names []string
	NewGenericVisitor(func(x Expr) bool {
		switch x := x.(type) {
		case *Ref:
			names = append(names, x.Name)
		case *CountRef:
			names = append(names, "#"+x.Species)
		}
		return false
	}).Walk(x)
	slices.Sort(names)
	return slices.Compact(names)
}
