// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package lexer turns MLSpace model text into a stream of tokens.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error is a lexical error at a position in the source.
type Error struct {
	Pos     Position
	Message string
}

func (e *Error) Error() string {
	if e.Pos.Src != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Src, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Lexer reads tokens from a source one at a time.
type Lexer struct {
	name  string
	input string

	// An offset into the string in bytes
	start int
	// An offset into the string in bytes
	end int

	line           int
	lineStartRunes int
	// An offset into the string in runes
	startRunes int
	endRunes   int
}

// New returns a lexer for input. The name is attached to every position.
func New(name, input string) *Lexer {
	return &Lexer{name: name, input: input, line: 1}
}

func (s *Lexer) peek() (rune, int) {
	return utf8.DecodeRuneInString(s.input[s.end:])
}

func (s *Lexer) peekAt(offset int) rune {
	if s.end+offset >= len(s.input) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.end+offset:])
	return r
}

func (s *Lexer) advance(w int) {
	s.end += w
	s.endRunes++
}

func (s *Lexer) makeToken(kind Type) (Token, error) {
	return s.makeValueToken(kind, s.input[s.start:s.end])
}

func (s *Lexer) makeValueToken(kind Type, value string) (Token, error) {
	return Token{
		Kind:  kind,
		Value: value,
		Pos: Position{
			Start:  s.startRunes,
			End:    s.endRunes,
			Line:   s.line,
			Column: s.startRunes - s.lineStartRunes + 1,
			Src:    s.name,
		},
	}, nil
}

// makeError reports an error at the start of the current token.
func (s *Lexer) makeError(format string, args ...any) (Token, error) {
	column := s.startRunes - s.lineStartRunes + 1
	return Token{
			Kind: Invalid,
			Pos: Position{
				Start:  s.startRunes,
				End:    s.endRunes,
				Line:   s.line,
				Column: column,
				Src:    s.name,
			},
		}, &Error{
			Pos:     Position{Line: s.line, Column: column, Src: s.name, Start: s.startRunes, End: s.endRunes},
			Message: fmt.Sprintf(format, args...),
		}
}

// ReadToken gets the next token from the source starting at the given position.
//
// This skips over whitespace and comments until it finds the next lexable
// token, then lexes punctuators immediately or calls the appropriate helper
// function for more complicated tokens.
func (s *Lexer) ReadToken() (Token, error) {
	if err := s.skipWhitespaceAndComments(); err != nil {
		return s.makeError("%s", err.Error())
	}
	s.start = s.end
	s.startRunes = s.endRunes

	if s.end >= len(s.input) {
		return s.makeToken(EOF)
	}
	r, w := s.peek()
	s.advance(w)

	switch r {
	case '[':
		return s.makeToken(BracketL)
	case ']':
		return s.makeToken(BracketR)
	case '{':
		return s.makeToken(BraceL)
	case '}':
		return s.makeToken(BraceR)
	case '(':
		return s.makeToken(ParenL)
	case ')':
		return s.makeToken(ParenR)
	case ';':
		return s.makeToken(Semicolon)
	case ',':
		return s.makeToken(Comma)
	case '@':
		return s.makeToken(At)
	case '#':
		return s.makeToken(Hash)
	case '+':
		return s.makeToken(Plus)
	case '*':
		return s.makeToken(Star)
	case '/':
		return s.makeToken(Slash)
	case '^':
		return s.makeToken(Caret)
	case '²':
		return s.makeToken(Square)
	case '³':
		return s.makeToken(Cube)
	case '°':
		return s.makeToken(Degree)
	case '-':
		if s.accept('>') {
			return s.makeToken(Arrow)
		}
		return s.makeToken(Minus)
	case ':':
		if s.accept('=') {
			return s.makeToken(Walrus)
		}
		return s.makeToken(Colon)
	case '=':
		if s.accept('=') {
			return s.makeToken(EqEq)
		}
		return s.makeToken(Equals)
	case '<':
		if s.accept('=') {
			return s.makeToken(LessEq)
		}
		return s.makeToken(Less)
	case '>':
		if s.accept('=') {
			return s.makeToken(GreaterEq)
		}
		return s.makeToken(Greater)
	case '.':
		if s.accept('.') {
			return s.makeToken(DotDot)
		}
		return s.makeToken(Dot)
	case '"':
		return s.readString()
	}

	if r >= '0' && r <= '9' {
		return s.readNumber()
	}
	if r == '_' || unicode.IsLetter(r) {
		return s.readName()
	}

	return s.makeError("unexpected character %q", r)
}

func (s *Lexer) accept(r rune) bool {
	if s.end < len(s.input) {
		if next, w := s.peek(); next == r {
			s.advance(w)
			return true
		}
	}
	return false
}

func (s *Lexer) skipWhitespaceAndComments() error {
	for s.end < len(s.input) {
		r, w := s.peek()
		switch {
		case r == '\n':
			s.advance(w)
			s.line++
			s.lineStartRunes = s.endRunes
		case r == ' ' || r == '\t' || r == '\r' || r == '\ufeff':
			s.advance(w)
		case r == '/' && s.peekAt(1) == '/':
			for s.end < len(s.input) {
				if r, _ := s.peek(); r == '\n' {
					break
				}
				_, w := s.peek()
				s.advance(w)
			}
		case r == '/' && s.peekAt(1) == '*':
			s.start = s.end
			s.startRunes = s.endRunes
			s.advance(1)
			s.advance(1)
			closed := false
			for s.end < len(s.input) {
				r, w := s.peek()
				if r == '*' && s.peekAt(1) == '/' {
					s.advance(1)
					s.advance(1)
					closed = true
					break
				}
				s.advance(w)
				if r == '\n' {
					s.line++
					s.lineStartRunes = s.endRunes
				}
			}
			if !closed {
				return fmt.Errorf("unterminated comment")
			}
		default:
			return nil
		}
	}
	return nil
}

// readNumber reads a number token from the source file, either a float or an
// int depending on whether a fraction or exponent part is present.
//
//	Number :: Digits ( "." Digits )? ( ( "e" | "E" ) ( "+" | "-" )? Digits )?
func (s *Lexer) readNumber() (Token, error) {
	s.readDigits()

	// "1..5" is a range, not a fraction.
	if r, _ := s.peek(); r == '.' && isDigit(s.peekAt(1)) {
		s.advance(1)
		s.readDigits()
	}

	if r, _ := s.peek(); r == 'e' || r == 'E' {
		next := s.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(s.peekAt(2))) {
			s.advance(1)
			if next == '+' || next == '-' {
				s.advance(1)
			}
			s.readDigits()
		}
	}

	if r, _ := s.peek(); r == '_' || unicode.IsLetter(r) {
		return s.makeError("invalid number, unexpected character %q", r)
	}

	return s.makeToken(Number)
}

func (s *Lexer) readDigits() {
	for s.end < len(s.input) {
		r, w := s.peek()
		if !isDigit(r) {
			return
		}
		s.advance(w)
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// readName reads an alphanumeric + underscore name from the source and
// classifies reserved words.
func (s *Lexer) readName() (Token, error) {
	for s.end < len(s.input) {
		r, w := s.peek()
		if r != '_' && !unicode.IsLetter(r) && !isDigit(r) {
			break
		}
		s.advance(w)
	}
	value := s.input[s.start:s.end]
	if kw, ok := Keywords[value]; ok {
		return s.makeToken(kw)
	}
	return s.makeToken(Name)
}

// readString reads a double quoted string. Supported escapes are \" \\ \n and \t.
func (s *Lexer) readString() (Token, error) {
	var buf strings.Builder
	for s.end < len(s.input) {
		r, w := s.peek()
		if r == '\n' {
			break
		}
		s.advance(w)
		switch r {
		case '"':
			return s.makeValueToken(String, buf.String())
		case '\\':
			if s.end >= len(s.input) {
				return s.makeError("unterminated string")
			}
			esc, w := s.peek()
			s.advance(w)
			switch esc {
			case '"', '\\':
				buf.WriteRune(esc)
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			default:
				return s.makeError("invalid escape sequence \\%c", esc)
			}
		default:
			buf.WriteRune(r)
		}
	}
	return s.makeError("unterminated string")
}
