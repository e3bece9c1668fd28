// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// This file contains extra functions for parsing MLSpace models and
// fragments. Most users should use these helpers instead of driving the
// Parser directly.

package ast

import (
	"github.com/mlspace/mlspace/internal/lexer"
)

// ParseDocument returns a parsed Document object. The filename is only used
// for location details on errors.
func ParseDocument(filename, input string) (*Document, error) {
	return ParseDocumentWithOpts(filename, input, ParserOptions{})
}

// ParseDocumentWithOpts returns a parsed Document object using the given
// parser options.
func ParseDocumentWithOpts(filename, input string, popts ParserOptions) (*Document, error) {
	return NewParser().
		WithFilename(filename).
		WithInput(input).
		WithParserOptions(popts).
		Parse()
}

// ParseExpr returns a single numeric expression.
func ParseExpr(input string) (Expr, error) {
	return NewParser().WithInput(input).ParseExpr()
}

// ParseValueSet returns a single value set, e.g. "1:10", "{a, b}" or
// "[0..inf)".
func ParseValueSet(input string) (*ValueSetExpr, error) {
	return NewParser().WithInput(input).ParseValueSet()
}

// MustParseDocument returns a parsed Document. If an error occurs during
// parsing, this function will panic. This function is mainly used in tests.
func MustParseDocument(input string) *Document {
	doc, err := ParseDocument("", input)
	if err != nil {
		panic(err)
	}
	return doc
}

// MustParseExpr returns a parsed expression. If an error occurs during
// parsing, this function will panic.
func MustParseExpr(input string) Expr {
	x, err := ParseExpr(input)
	if err != nil {
		panic(err)
	}
	return x
}

// MustParseValueSet returns a parsed value set. If an error occurs during
// parsing, this function will panic.
func MustParseValueSet(input string) *ValueSetExpr {
	vs, err := ParseValueSet(input)
	if err != nil {
		panic(err)
	}
	return vs
}

// ParseExpr parses the whole input as one expression.
func (p *Parser) ParseExpr() (Expr, error) {
	return parseStandalone(p, p.parseExpr)
}

// ParseValueSet parses the whole input as one value set.
func (p *Parser) ParseValueSet() (*ValueSetExpr, error) {
	return parseStandalone(p, p.parseValueSet)
}

func parseStandalone[T any](p *Parser, production func() T) (result T, err error) {
	var zero T
	defer func() {
		if r := recover(); r != nil {
			if r != errLimitReached {
				panic(r)
			}
			result, err = zero, p.errors
		}
	}()

	if err := p.tokenize(); err != nil {
		return zero, err
	}
	if len(p.errors) > 0 {
		return zero, p.errors
	}

	x := production()
	if tok := p.peek(); !p.failed && tok.Kind != lexer.EOF {
		p.unexpectedToken(tok, lexer.EOF)
	}
	if len(p.errors) > 0 {
		return zero, p.errors
	}
	return x, nil
}
