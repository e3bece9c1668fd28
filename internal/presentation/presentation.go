// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package presentation prints compiled models, match reports and expression
// results in json, yaml and tabular formats.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/loader"
	"github.com/mlspace/mlspace/metrics"
)

// Output contains the result of a command to be presented.
type Output struct {
	Errors   OutputErrors    `json:"errors,omitempty"`
	Warnings OutputErrors    `json:"warnings,omitempty"`
	Model    *ast.Model      `json:"model,omitempty"`
	Matches  []MatchResult   `json:"matches,omitempty"`
	Expr     *ExprResult     `json:"expr,omitempty"`
	Metrics  metrics.Metrics `json:"metrics,omitempty"`
}

// ExprResult is the outcome of evaluating a numeric expression. Expressions
// referencing unbound variables stay deferred and list their free variables.
type ExprResult struct {
	Expr     string   `json:"expr"`
	Value    any      `json:"value,omitempty"`
	Deferred bool     `json:"deferred,omitempty"`
	FreeVars []string `json:"free_vars,omitempty"`
}

// NewExprResult returns the presentation of q.
func NewExprResult(q ast.Quantity) *ExprResult {
	r := &ExprResult{Expr: q.String()}
	if e := q.Expr(); e != nil {
		r.Expr = e.String()
	}
	if v, ok := q.Value(); ok {
		if f, ok := ast.AsNumber(v); ok {
			r.Value = f
		} else {
			r.Value = v.String()
		}
		return r
	}
	r.Deferred = true
	r.FreeVars = q.FreeVars()
	return r
}

// MatchResult lists the initial entities matching one left-hand side entity
// of a rule.
type MatchResult struct {
	Rule    string       `json:"rule"`
	Index   int          `json:"index"`
	Pattern string       `json:"pattern"`
	Context bool         `json:"context,omitempty"`
	Matches []MatchCount `json:"matches"`
	Errors  OutputErrors `json:"errors,omitempty"`
}

// MatchCount is a matching entity and its number of initial copies.
type MatchCount struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

// NewMatchResults converts pattern matches for presentation. Rules without a
// name are labelled by their location.
func NewMatchResults(pms []*ast.PatternMatch) []MatchResult {
	out := make([]MatchResult, 0, len(pms))
	for _, pm := range pms {
		r := MatchResult{
			Rule:    ruleLabel(pm.Rule),
			Index:   pm.Index,
			Pattern: pm.Pattern.String(),
			Context: pm.Context,
			Matches: []MatchCount{},
		}
		for _, e := range pm.Matches {
			r.Matches = append(r.Matches, MatchCount{Entity: e.Key(), Count: pm.Counts[e.Key()]})
		}
		for _, err := range pm.Errors {
			r.Errors = append(r.Errors, NewOutputErrors(err)...)
		}
		out = append(out, r)
	}
	return out
}

func ruleLabel(r *ast.Rule) string {
	if r.Name != "" {
		return r.Name
	}
	if r.Location != nil {
		return fmt.Sprintf("rule@%d:%d", r.Location.Row, r.Location.Col)
	}
	return "rule"
}

// NewOutputErrors creates a new slice of OutputError's based
// on the type of error passed in. Known structured types will
// be translated as appropriate, while unknown errors are
// placed into a structured format with their string value.
func NewOutputErrors(err error) []OutputError {
	var errs []OutputError
	if err != nil {
		switch typedErr := err.(type) {
		case *ast.Error:
			oe := OutputError{
				Code:    string(typedErr.Code),
				Message: typedErr.Message,
				Details: typedErr.Details,
				err:     typedErr,
			}
			if typedErr.Location != nil {
				oe.Location = typedErr.Location
			}
			errs = []OutputError{oe}

		// The cases below are wrappers for other errors, format errors
		// recursively on them.
		case ast.Errors:
			for _, e := range typedErr {
				if e != nil {
					errs = append(errs, NewOutputErrors(e)...)
				}
			}
		case loader.Errors:
			for _, e := range typedErr {
				if e != nil {
					errs = append(errs, NewOutputErrors(e)...)
				}
			}
		case OutputErrors:
			errs = typedErr
		default:
			// Any errors which don't have a structure we know about
			// are converted to their string representation only.
			errs = []OutputError{{
				Message: err.Error(),
				err:     typedErr,
			}}
		}
	}
	return errs
}

// OutputErrors is a list of errors encountered
// which are to presented.
type OutputErrors []OutputError

func (e OutputErrors) Error() string {
	if len(e) == 0 {
		return "no error(s)"
	}

	var prefix string
	if len(e) == 1 {
		prefix = "1 error occurred: "
	} else {
		prefix = fmt.Sprintf("%d errors occurred:\n", len(e))
	}

	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}

	return prefix + strings.Join(s, "\n")
}

// OutputError provides a common structure for all MLSpace
// errors so that the JSON output given by the presentation
// package is consistent and parsable.
type OutputError struct {
	Message  string        `json:"message"`
	Code     string        `json:"code,omitempty"`
	Location *ast.Location `json:"location,omitempty"`
	Details  any           `json:"details,omitempty"`
	err      error
}

func (j OutputError) Error() string {
	if j.err == nil {
		return j.Message
	}
	return j.err.Error()
}

// JSON writes x to w with indentation.
func JSON(w io.Writer, x any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(x)
}

// YAML writes x to w in block style. x is converted through its JSON
// representation so the field names and order match the JSON output.
func YAML(w io.Writer, x any) error {
	bs, err := json.Marshal(x)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return err
	}
	return encoder.Close()
}

// blockStyle drops the flow and quoting styles inherited from JSON. Scalars
// that would change type when unquoted are quoted again by the encoder.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Pretty prints all of r to w in a human-readable format.
func Pretty(w io.Writer, r Output) error {
	if len(r.Errors) > 0 {
		if err := prettyError(w, r.Errors); err != nil {
			return err
		}
	}
	if len(r.Warnings) > 0 {
		if err := prettyWarnings(w, r.Warnings); err != nil {
			return err
		}
	}
	if r.Model != nil {
		if err := prettyModel(w, r.Model); err != nil {
			return err
		}
	}
	if r.Matches != nil {
		if err := prettyMatches(w, r.Matches); err != nil {
			return err
		}
	}
	if r.Expr != nil {
		if err := prettyExpr(w, r.Expr); err != nil {
			return err
		}
	}
	if r.Metrics != nil {
		if err := prettyMetrics(w, r.Metrics); err != nil {
			return err
		}
	}
	return nil
}

func prettyError(w io.Writer, errs OutputErrors) error {
	_, err := fmt.Fprintln(w, errs)
	return err
}

func prettyWarnings(w io.Writer, warnings OutputErrors) error {
	for _, warning := range warnings {
		if _, err := fmt.Fprintln(w, "warning:", warning.Error()); err != nil {
			return err
		}
	}
	return nil
}

func prettyModel(w io.Writer, m *ast.Model) error {
	fmt.Fprintf(w, "Model: %v\n", m.Name)
	fmt.Fprintf(w, "Periodic boundaries: %v\n", m.PeriodicBoundaries)
	fmt.Fprintf(w, "Postpone init: %v\n", m.PostponeInit)

	if len(m.VariableOrder) > 0 {
		table := generateTableWithKeys(w, "Variable", "Value", "Used")
		for _, name := range m.VariableOrder {
			_, used := slices.BinarySearch(m.UsedVariables, name)
			table.Append([]string{name, m.Variables[name].String(), fmt.Sprint(used)})
		}
		table.Render()
	}

	if m.Species.Len() > 0 {
		table := generateTableWithKeys(w, "Species", "Attributes", "Sites")
		for _, sp := range m.Species.All() {
			attrs := make([]string, len(sp.Attributes))
			for i, a := range sp.Attributes {
				attrs[i] = a.Name + ": " + a.Domain.String()
			}
			sites := make([]string, len(sp.Sites))
			for i, s := range sp.Sites {
				sites[i] = fmt.Sprintf("%v: %v", s.Name, s.Angle)
			}
			table.Append([]string{sp.Name, strings.Join(attrs, "\n"), strings.Join(sites, "\n")})
		}
		table.SetRowLine(true)
		table.Render()
	}

	if m.Rules.Len() > 0 {
		table := generateTableWithKeys(w, "Rule", "LHS", "RHS", "Rate")
		for _, r := range m.Rules.All() {
			rate := r.Rate.String()
			if r.Rate.IsDeferred() {
				rate += " (deferred)"
			}
			table.Append([]string{ruleLabel(r), r.LHS.String(), r.RHS.String(), rate})
		}
		table.Render()
	}

	if m.Init.Len() > 0 {
		table := generateTableWithKeys(w, "Entity", "Count")
		for _, e := range m.Init.Entries() {
			table.Append([]string{e.Entity.String(), fmt.Sprint(e.Count)})
		}
		table.SetFooter([]string{"Total", fmt.Sprint(m.Init.Total())})
		table.Render()
	}

	return nil
}

func prettyMatches(w io.Writer, results []MatchResult) error {
	table := generateTableWithKeys(w, "Rule", "Pattern", "Entity", "Count")
	for _, r := range results {
		pattern := r.Pattern
		if r.Context {
			pattern += " (context)"
		}
		if len(r.Matches) == 0 {
			table.Append([]string{r.Rule, pattern, "-", "0"})
		}
		for _, m := range r.Matches {
			table.Append([]string{r.Rule, pattern, m.Entity, fmt.Sprint(m.Count)})
		}
		for _, err := range r.Errors {
			table.Append([]string{r.Rule, pattern, "error: " + err.Message, "-"})
		}
	}
	table.SetAutoMergeCells(true)
	table.Render()
	return nil
}

func prettyExpr(w io.Writer, r *ExprResult) error {
	if !r.Deferred {
		_, err := fmt.Fprintln(w, r.Value)
		return err
	}
	_, err := fmt.Fprintf(w, "deferred: %v\nfree variables: %v\n", r.Expr, strings.Join(r.FreeVars, ", "))
	return err
}

func prettyMetrics(w io.Writer, m metrics.Metrics) error {
	table := generateTableWithKeys(w, "Metric", "Value")
	populateTableMetrics(m, table)
	if table.NumLines() > 0 {
		table.Render()
	}
	return nil
}

func generateTableWithKeys(writer io.Writer, keys ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(writer)
	aligns := make([]int, 0, len(keys))
	for range keys {
		aligns = append(aligns, tablewriter.ALIGN_LEFT)
	}
	table.SetHeader(keys)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnAlignment(aligns)
	return table
}

func populateTableMetrics(m metrics.Metrics, table *tablewriter.Table) {
	lines := [][]string{}
	for _, e := range metrics.Sorted(m) {
		val, ok := e.Value.(map[string]any)
		if !ok {
			lines = append(lines, []string{e.Key, fmt.Sprint(e.Value)})
			continue
		}
		for _, k := range slices.Sorted(maps.Keys(val)) {
			lines = append(lines, []string{e.Key + "_" + k, fmt.Sprint(val[k])})
		}
	}
	table.AppendBulk(lines)
}
