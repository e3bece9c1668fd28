// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"errors"
	"fmt"
	"strings"
)

// Errors represents a series of errors encountered during parsing, compiling,
// etc.
type Errors []*Error

func (e Errors) Error() string {

	if len(e) == 0 {
		return "no error(s)"
	}

	if len(e) == 1 {
		return fmt.Sprintf("1 error occurred: %v", e[0].Error())
	}

	s := make([]string, len(e))
	for i, err := range e {
		s[i] = err.Error()
	}

	return fmt.Sprintf("%d errors occurred:\n%s", len(e), strings.Join(s, "\n"))
}

// Sort sorts the error slice by location. If the locations are equal then the
// error message is compared.
func (e Errors) Sort() {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].less(e[j-1]); j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

func (e *Error) less(other *Error) bool {
	if cmp := e.Location.Compare(other.Location); cmp != 0 {
		return cmp < 0
	}
	return e.Message < other.Message
}

// ErrCode defines the types of errors returned during parsing, compiling, etc.
type ErrCode string

const (
	// ParseErr indicates the token stream did not match the grammar.
	ParseErr ErrCode = "mlspace_parse_error"

	// CompileErr indicates an unclassified semantic error occurred.
	CompileErr ErrCode = "mlspace_compile_error"

	// UndeclaredSpeciesErr indicates an identifier used as a species
	// reference was never defined as a species.
	UndeclaredSpeciesErr ErrCode = "mlspace_undeclared_species_error"

	// UnknownAttributeErr indicates an entity names an attribute its species
	// does not declare.
	UnknownAttributeErr ErrCode = "mlspace_unknown_attribute_error"

	// UnknownBindingSiteErr indicates an entity names a binding site its
	// species does not declare.
	UnknownBindingSiteErr ErrCode = "mlspace_unknown_binding_site_error"

	// UnresolvedVariableErr indicates an expression evaluated immediately
	// references a variable that is undefined, multi-valued or non-numeric.
	UnresolvedVariableErr ErrCode = "mlspace_unresolved_variable_error"

	// MalformedRuleSideErr indicates inconsistent context brackets on a rule side.
	MalformedRuleSideErr ErrCode = "mlspace_malformed_rule_side_error"

	// MalformedValueRangeErr indicates a zero step range or a mixed set.
	MalformedValueRangeErr ErrCode = "mlspace_malformed_value_range_error"

	// NotEnumerableErr indicates a value range cannot be turned into a finite list.
	NotEnumerableErr ErrCode = "mlspace_not_enumerable_error"

	// VariableOverrideWarning is attached to the non-fatal diagnostic issued
	// when a loop variable shadows a previously defined variable.
	VariableOverrideWarning ErrCode = "mlspace_variable_override_warning"

	// TruncationWarning is attached to the non-fatal diagnostic issued when an
	// integer coercion loses precision.
	TruncationWarning ErrCode = "mlspace_truncation_warning"

	// UnusedOverrideWarning is attached to the non-fatal diagnostic issued
	// when a parameter override names no variable of the model.
	UnusedOverrideWarning ErrCode = "mlspace_unused_override_warning"
)

// IsError returns true if err is an AST error with code. Errors collections
// match when any of their members does.
func IsError(code ErrCode, err error) bool {
	var errs Errors
	if errors.As(err, &errs) {
		for _, e := range errs {
			if e.Code == code {
				return true
			}
		}
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ErrorDetails defines the interface for detailed error messages.
type ErrorDetails interface {
	Lines() []string
}

// Error represents a single error caught during parsing, compiling, etc.
type Error struct {
	Code     ErrCode      `json:"code"`
	Message  string       `json:"message"`
	Location *Location    `json:"location,omitempty"`
	Details  ErrorDetails `json:"details,omitempty"`
}

func (e *Error) Error() string {

	var prefix string

	if e.Location != nil {

		if len(e.Location.File) > 0 {
			prefix += e.Location.File + ":" + fmt.Sprint(e.Location.Row) + ":" + fmt.Sprint(e.Location.Col)
		} else {
			prefix += fmt.Sprint(e.Location.Row) + ":" + fmt.Sprint(e.Location.Col)
		}
	}

	msg := fmt.Sprintf("%v: %v", e.Code, e.Message)

	if len(prefix) > 0 {
		msg = prefix + ": " + msg
	}

	if e.Details != nil {
		for _, line := range e.Details.Lines() {
			msg += "\n\t" + line
		}
	}

	return msg
}

// NewError returns a new Error object.
func NewError(code ErrCode, loc *Location, f string, a ...any) *Error {
	return &Error{
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(f, a...),
	}
}

// suggestionDetails renders "did you mean" hints below an error message.
type suggestionDetails struct {
	Candidates []string `json:"candidates"`
}

func (d suggestionDetails) Lines() []string {
	if len(d.Candidates) == 0 {
		return nil
	}
	return []string{"did you mean " + strings.Join(quoteAll(d.Candidates), " or ") + "?"}
}

func quoteAll(xs []string) []string {
	out := make([]string, len(xs))
	for i := range xs {
		out[i] = fmt.Sprintf("%q", xs[i])
	}
	return out
}
