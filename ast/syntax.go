// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"strings"

	"github.com/mlspace/mlspace/ast/location"
)

// Location records a position in source code.
type Location = location.Location

// NewLocation returns a new Location object.
func NewLocation(text []byte, file string, row int, col int) *Location {
	return location.NewLocation(text, file, row, col)
}

// The types below form the syntax tree produced by the parser. The parser is
// pure: it neither resolves variables nor checks species declarations beyond
// the lookahead needed to pick a production. The Compiler turns a Document
// into a Model.

// Document is a parsed model file.
type Document struct {
	ModelName *ModelNameDecl
	Vars      []*VarDef
	Species   []*SpeciesDef
	Rules     []*RuleStmt
	Init      []InitElem

	// InitFirst is true if the init block precedes the rules.
	InitFirst bool
}

// ModelNameDecl is "modelname <ID>;".
type ModelNameDecl struct {
	Name     string
	Location *Location
}

// VarDef is "<ID> = <valset>;".
type VarDef struct {
	Name     string
	Value    *ValueSetExpr
	Location *Location
}

// SpeciesDef is "<ID>(<attr>: <valset>, ...) <<site>: <angle>, ...>;".
type SpeciesDef struct {
	Name     string
	Attrs    []*AttrDecl
	Sites    []*SiteDecl
	Location *Location
}

// AttrDecl declares an attribute and its domain.
type AttrDecl struct {
	Name     string
	Domain   *ValueSetExpr
	Location *Location
}

// SiteDecl declares a binding site. A nil Angle means 0.
type SiteDecl struct {
	Name     string
	Angle    Expr
	Location *Location
}

// RuleStmt is "[<ID>:] <lhs> -> <rhs> @ <rate>".
type RuleStmt struct {
	Name     string
	LHS      RuleSide[*EntityTerm]
	RHS      RuleSide[*EntityTerm]
	Rate     Expr
	Location *Location
}

// EntityTerm is a species reference with attribute and site items as
// written. Whether the items are matches, modifiers or concrete values
// depends on where the term appears.
type EntityTerm struct {
	Species  string
	Attrs    []*AttrItem
	Sites    []*SiteItem
	Location *Location
}

// AttrOp is the operator between an attribute name and its operand.
type AttrOp string

// Attribute item operators.
const (
	AttrColon AttrOp = ":"
	AttrEq    AttrOp = "=="
	AttrGt    AttrOp = ">"
	AttrGte   AttrOp = ">="
	AttrLt    AttrOp = "<"
	AttrLte   AttrOp = "<="
	AttrIn    AttrOp = "in"
	AttrAddEq AttrOp = "+="
	AttrSubEq AttrOp = "-="
	AttrMulEq AttrOp = "*="
	AttrDivEq AttrOp = "/="
)

// Relative returns true for the compound assignment operators.
func (op AttrOp) Relative() bool {
	switch op {
	case AttrAddEq, AttrSubEq, AttrMulEq, AttrDivEq:
		return true
	}
	return false
}

// Compare returns true for the comparison operators.
func (op AttrOp) Compare() bool {
	switch op {
	case AttrEq, AttrGt, AttrGte, AttrLt, AttrLte:
		return true
	}
	return false
}

// AttrItem is one "<name> <op> <operand>" item of an entity term. For
// comparisons and relative modifiers the operand is a single expression; for
// "in" it is an interval.
type AttrItem struct {
	Name     string
	Op       AttrOp
	Value    *ValueSetExpr
	Location *Location
}

// SiteItemKind distinguishes the forms of a binding site item.
type SiteItemKind int

// Site item kinds.
const (
	SiteItemEntity SiteItemKind = iota
	SiteItemFree
	SiteItemOcc
	SiteItemBind
	SiteItemRelease
	SiteItemReplace
)

var siteItemKeywords = [...]string{
	SiteItemFree:    "free",
	SiteItemOcc:     "occ",
	SiteItemBind:    "bind",
	SiteItemRelease: "release",
	SiteItemReplace: "replace",
}

// WildcardSite names every declared site of a species.
const WildcardSite = "*"

// SiteItem is one "<site>: <target>" item of an entity term.
type SiteItem struct {
	Name     string
	Kind     SiteItemKind
	Entity   *EntityTerm
	Location *Location
}

// InitElem is an element of an init block: an InitEntry or a ForLoop.
type InitElem interface {
	Loc() *Location
	initElem()
}

// InitEntry is "<count> <entity> [ <init> ]".
type InitEntry struct {
	Count    Expr
	Entity   *EntityTerm
	Contents []InitElem
	Location *Location
}

// ForLoop is "for <ID> = <domain> { <init> }".
type ForLoop struct {
	Var      string
	Domain   *ValueSetExpr
	Body     []InitElem
	Location *Location
}

func (*InitEntry) initElem() {}
func (*ForLoop) initElem()   {}

func (e *InitEntry) Loc() *Location { return e.Location }
func (e *ForLoop) Loc() *Location   { return e.Location }

// ValueSetKind distinguishes the written forms of a value set.
type ValueSetKind int

// Value set forms.
const (
	// ValueSetExprKind is a single expression. A bare identifier naming no
	// variable is a symbol.
	ValueSetExprKind ValueSetKind = iota
	// ValueSetStringKind is a string literal.
	ValueSetStringKind
	// ValueSetSetKind is "{a, b, ...}".
	ValueSetSetKind
	// ValueSetRangeKind is "a:b" or "a:step:b".
	ValueSetRangeKind
	// ValueSetIntervalKind is "[a..b)" and friends, or a half-open "< e".
	ValueSetIntervalKind
	// ValueSetVectorKind is "(a, b, ...)".
	ValueSetVectorKind
)

// ValueSetExpr is a value set as written. Exprs holds the expression for a
// single value, [lower, upper] or [lower, step, upper] for a range, [lower,
// upper] for an interval and the components of a vector.
type ValueSetExpr struct {
	Kind     ValueSetKind
	Str      string
	Exprs    []Expr
	Elems    []*ValueSetExpr
	LowInc   bool
	HighInc  bool
	Location *Location
}

// Ident returns the identifier if the value set is a bare identifier.
func (v *ValueSetExpr) Ident() (string, bool) {
	if v.Kind != ValueSetExprKind || len(v.Exprs) != 1 {
		return "", false
	}
	if r, ok := v.Exprs[0].(*Ref); ok {
		return r.Name, true
	}
	return "", false
}

func (v *ValueSetExpr) String() string {
	switch v.Kind {
	case ValueSetStringKind:
		return String(v.Str).String()
	case ValueSetSetKind:
		parts := make([]string, len(v.Elems))
		for i := range v.Elems {
			parts[i] = v.Elems[i].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ValueSetRangeKind:
		return joinExprs(v.Exprs, ":")
	case ValueSetIntervalKind:
		l, r := "(", ")"
		if v.LowInc {
			l = "["
		}
		if v.HighInc {
			r = "]"
		}
		return l + joinExprs(v.Exprs, "..") + r
	case ValueSetVectorKind:
		return "(" + joinExprs(v.Exprs, ", ") + ")"
	}
	return joinExprs(v.Exprs, "")
}

func (e *EntityTerm) String() string {
	var sb strings.Builder
	sb.WriteString(e.Species)
	if len(e.Attrs) > 0 {
		sb.WriteByte('(')
		for i, a := range e.Attrs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.Name)
			switch {
			case a.Op == AttrColon:
				sb.WriteString(": ")
			case a.Op.Relative():
				sb.WriteString(" " + string(a.Op) + " ")
			default:
				sb.WriteString(": " + string(a.Op) + " ")
			}
			sb.WriteString(a.Value.String())
		}
		sb.WriteByte(')')
	}
	if len(e.Sites) > 0 {
		sb.WriteByte('<')
		for i, s := range e.Sites {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(s.Name)
			sb.WriteString(": ")
			if s.Kind == SiteItemEntity {
				sb.WriteString(s.Entity.String())
			} else {
				sb.WriteString(siteItemKeywords[s.Kind])
			}
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

func joinExprs(xs []Expr, sep string) string {
	parts := make([]string, len(xs))
	for i := range xs {
		parts[i] = xs[i].String()
	}
	return strings.Join(parts, sep)
}
