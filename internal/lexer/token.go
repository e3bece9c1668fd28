// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package lexer

import (
	"strconv"
)

// Type is the kind of a lexical token.
type Type int

// Token kinds.
const (
	Invalid Type = iota
	EOF
	BracketL
	BracketR
	BraceL
	BraceR
	ParenL
	ParenR
	Colon
	Semicolon
	Comma
	Arrow
	At
	Hash
	Equals
	Walrus
	EqEq
	Less
	LessEq
	Greater
	GreaterEq
	DotDot
	Dot
	Plus
	Minus
	Star
	Slash
	Caret
	Square
	Cube
	Degree
	Name
	Number
	String

	// keywords
	For
	Free
	Occ
	Bind
	Release
	Replace
	In
	ModelName
	Min
	Max
	If
	Then
	Else
)

var names = [...]string{
	Invalid:   "Invalid",
	EOF:       "EOF",
	BracketL:  "[",
	BracketR:  "]",
	BraceL:    "{",
	BraceR:    "}",
	ParenL:    "(",
	ParenR:    ")",
	Colon:     ":",
	Semicolon: ";",
	Comma:     ",",
	Arrow:     "->",
	At:        "@",
	Hash:      "#",
	Equals:    "=",
	Walrus:    ":=",
	EqEq:      "==",
	Less:      "<",
	LessEq:    "<=",
	Greater:   ">",
	GreaterEq: ">=",
	DotDot:    "..",
	Dot:       ".",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Slash:     "/",
	Caret:     "^",
	Square:    "²",
	Cube:      "³",
	Degree:    "°",
	Name:      "Name",
	Number:    "Number",
	String:    "String",
	For:       "for",
	Free:      "free",
	Occ:       "occ",
	Bind:      "bind",
	Release:   "release",
	Replace:   "replace",
	In:        "in",
	ModelName: "modelname",
	Min:       "min",
	Max:       "max",
	If:        "if",
	Then:      "then",
	Else:      "else",
}

// Keywords maps reserved words to their token kinds.
var Keywords = map[string]Type{
	"for":       For,
	"free":      Free,
	"occ":       Occ,
	"bind":      Bind,
	"release":   Release,
	"replace":   Replace,
	"in":        In,
	"modelname": ModelName,
	"min":       Min,
	"max":       Max,
	"if":        If,
	"then":      Then,
	"else":      Else,
}

// Name returns the identifier of the token kind.
func (t Type) Name() string {
	if t < 0 || int(t) >= len(names) {
		return "Invalid"
	}
	return names[t]
}

// String returns the token kind quoted for punctuation and keywords, and bare
// for literal classes.
func (t Type) String() string {
	switch t {
	case Invalid, EOF, Name, Number, String:
		return t.Name()
	}
	return strconv.Quote(t.Name())
}

// IsKeyword returns true if t is a reserved word.
func (t Type) IsKeyword() bool {
	return t >= For
}

// IsEntitySeparator returns true for the interchangeable entity separators
// ",", "." and "+".
func (t Type) IsEntitySeparator() bool {
	return t == Comma || t == Dot || t == Plus
}

// Position records where a token starts and ends in its source.
type Position struct {
	Start  int    // The starting byte offset.
	End    int    // The ending byte offset.
	Line   int    // The line number at the start of this item.
	Column int    // The column number at the start of this item.
	Src    string // The name of the source.
}

// Token is a single lexical item.
type Token struct {
	Kind  Type
	Value string // The raw text for names and numbers, the unquoted text for strings.
	Pos   Position
}

func (t Token) String() string {
	switch t.Kind {
	case Name, Number:
		return t.Kind.Name() + " " + strconv.Quote(t.Value)
	case String:
		return "String " + strconv.Quote(t.Value)
	}
	return t.Kind.String()
}
