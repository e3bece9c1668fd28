// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package presentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/loader"
	"github.com/mlspace/mlspace/metrics"
)

const cellsModel = `
	k = 2;
	A(x: {1, 2});
	grow: A(x: 1) -> A(x: 2) @ k;
	A(x: 2) -> @ r;
	k A(x: 1);
`

func compileCells(t *testing.T) *ast.Model {
	t.Helper()
	_, m, err := ast.CompileModel("cells.mls", cellsModel, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func validateJSONOutput(t *testing.T, testErr error, expected string) {
	t.Helper()
	output := Output{Errors: NewOutputErrors(testErr)}
	var buf bytes.Buffer
	if err := JSON(&buf, output); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}

	var result, exp any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(expected), &exp); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(exp, result); diff != "" {
		t.Fatalf("Unexpected output (-want, +got):\n%s", diff)
	}
}

func TestOutputJSONErrorUnstructured(t *testing.T) {
	validateJSONOutput(t, errors.New("some text"), `{
  "errors": [
    {
      "message": "some text"
    }
  ]
}`)
}

func TestOutputJSONErrorStructured(t *testing.T) {
	_, err := ast.ParseDocument("m.mls", "Cell(); 1 Cel;")
	validateJSONOutput(t, err, `{
  "errors": [
    {
      "message": "species Cel is not defined",
      "code": "mlspace_undeclared_species_error",
      "location": {"file": "m.mls", "row": 1, "col": 11},
      "details": {"candidates": ["Cell"]}
    }
  ]
}`)
}

func TestOutputJSONErrorLoader(t *testing.T) {
	_, parseErr := ast.ParseDocument("m.mls", "A(); 1 A; 2 A;")
	err := loader.Errors{parseErr, errors.New("m2.mls: empty model file")}
	validateJSONOutput(t, err, `{
  "errors": [
    {
      "message": "duplicate init block",
      "code": "mlspace_parse_error",
      "location": {"file": "m.mls", "row": 1, "col": 11}
    },
    {
      "message": "m2.mls: empty model file"
    }
  ]
}`)
}

func TestOutputErrorsError(t *testing.T) {
	tests := []struct {
		note string
		err  error
		exp  string
	}{
		{
			note: "none",
			exp:  "no error(s)",
		},
		{
			note: "single",
			err:  ast.NewError(ast.CompileErr, nil, "bad"),
			exp:  "1 error occurred: mlspace_compile_error: bad",
		},
		{
			note: "multiple",
			err:  ast.Errors{ast.NewError(ast.CompileErr, nil, "bad"), ast.NewError(ast.ParseErr, nil, "worse")},
			exp:  "2 errors occurred:\nmlspace_compile_error: bad\nmlspace_parse_error: worse",
		},
		{
			note: "already converted",
			err:  OutputErrors{{Message: "plain"}},
			exp:  "1 error occurred: plain",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := OutputErrors(NewOutputErrors(tc.err)).Error(); got != tc.exp {
				t.Fatalf("Expected %q but got %q", tc.exp, got)
			}
		})
	}
}

func TestNewExprResult(t *testing.T) {
	tests := []struct {
		note string
		expr string
		env  ast.Env
		exp  *ExprResult
	}{
		{
			note: "immediate",
			expr: "2 * 3",
			exp:  &ExprResult{Expr: "2 * 3", Value: 6.0},
		},
		{
			note: "bound variable",
			expr: "k + 1",
			env:  ast.NumberBindings(map[string]float64{"k": 4}),
			exp:  &ExprResult{Expr: "k + 1", Value: 5.0},
		},
		{
			note: "deferred",
			expr: "k * #A",
			env:  ast.Bindings{},
			exp:  &ExprResult{Expr: "k * #A", Deferred: true, FreeVars: []string{"#A", "k"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			q, err := ast.NewQuantity(ast.MustParseExpr(tc.expr), tc.env)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, NewExprResult(q)); diff != "" {
				t.Fatalf("Unexpected result (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestNewMatchResults(t *testing.T) {
	m := compileCells(t)
	results := NewMatchResults(m.MatchInit(m.Env()))

	exp := []MatchResult{
		{Rule: "grow", Index: 0, Pattern: "A(x: == 1)", Matches: []MatchCount{{Entity: "A(x: 1)", Count: 2}}},
		{Rule: "rule@5:2", Index: 0, Pattern: "A(x: == 2)", Matches: []MatchCount{}},
	}
	if diff := cmp.Diff(exp, results, cmp.AllowUnexported(OutputError{})); diff != "" {
		t.Fatalf("Unexpected match results (-want, +got):\n%s", diff)
	}
}

func TestJSONModel(t *testing.T) {
	m := compileCells(t)
	var buf bytes.Buffer
	if err := JSON(&buf, Output{Model: m}); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Model struct {
			Name  string `json:"name"`
			Rules []struct {
				Name     string `json:"name"`
				Deferred bool   `json:"deferred"`
			} `json:"rules"`
		} `json:"model"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Model.Name != "cells" || len(out.Model.Rules) != 2 {
		t.Fatalf("Unexpected model output: %s", buf.String())
	}
	if out.Model.Rules[0].Name != "grow" || out.Model.Rules[0].Deferred || !out.Model.Rules[1].Deferred {
		t.Fatalf("Unexpected rules: %s", buf.String())
	}
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	x := map[string]any{
		"name":  "cells",
		"count": 3,
		"id":    "5",
		"tags":  []string{"a", "b"},
	}
	if err := YAML(&buf, x); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(buf.String(), "{") || strings.Contains(buf.String(), "[") {
		t.Fatalf("Expected block style output but got:\n%s", buf.String())
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	exp := map[string]any{
		"name":  "cells",
		"count": 3,
		"id":    "5",
		"tags":  []any{"a", "b"},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("Unexpected YAML round trip (-want, +got):\n%s", diff)
	}
}

func TestPrettyModel(t *testing.T) {
	m := compileCells(t)
	var buf bytes.Buffer
	if err := Pretty(&buf, Output{Model: m}); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, exp := range []string{
		"Model: cells",
		"Periodic boundaries: false",
		"VARIABLE",
		"x: {1, 2}",
		"grow",
		"r (deferred)",
		"A(x: 1)",
		"TOTAL",
	} {
		if !strings.Contains(out, exp) {
			t.Errorf("Expected output to contain %q but got:\n%s", exp, out)
		}
	}
}

func TestPrettyMatches(t *testing.T) {
	m := compileCells(t)
	var buf bytes.Buffer
	if err := Pretty(&buf, Output{Matches: NewMatchResults(m.MatchInit(m.Env()))}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, exp := range []string{"PATTERN", "A(x: == 1)", "A(x: 1)", "rule@5:2"} {
		if !strings.Contains(out, exp) {
			t.Errorf("Expected output to contain %q but got:\n%s", exp, out)
		}
	}
}

func TestPrettyExpr(t *testing.T) {
	tests := []struct {
		note string
		r    *ExprResult
		exp  string
	}{
		{note: "value", r: &ExprResult{Expr: "2 * 3", Value: 6.0}, exp: "6\n"},
		{note: "deferred", r: &ExprResult{Expr: "k * #A", Deferred: true, FreeVars: []string{"#A", "k"}}, exp: "deferred: k * #A\nfree variables: #A, k\n"},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, Output{Expr: tc.r}); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tc.exp {
				t.Fatalf("Expected %q but got %q", tc.exp, buf.String())
			}
		})
	}
}

func TestPrettyErrorsAndWarnings(t *testing.T) {
	var buf bytes.Buffer
	out := Output{
		Errors:   NewOutputErrors(ast.NewError(ast.CompileErr, nil, "bad")),
		Warnings: NewOutputErrors(ast.NewError(ast.TruncationWarning, nil, "count 2.5 truncated from 2.5 to 2")),
	}
	if err := Pretty(&buf, out); err != nil {
		t.Fatal(err)
	}
	exp := "1 error occurred: mlspace_compile_error: bad\nwarning: mlspace_truncation_warning: count 2.5 truncated from 2.5 to 2\n"
	if buf.String() != exp {
		t.Fatalf("Expected %q but got %q", exp, buf.String())
	}
}

func TestPrettyMetrics(t *testing.T) {
	m := metrics.New()
	m.Counter(metrics.InitEntities).Add(3)
	m.Histogram(metrics.InitLoopIterations).Update(4)

	var buf bytes.Buffer
	if err := Pretty(&buf, Output{Metrics: m}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, exp := range []string{"counter_init_entities", "histogram_init_loop_iterations_max"} {
		if !strings.Contains(out, exp) {
			t.Errorf("Expected output to contain %q but got:\n%s", exp, out)
		}
	}
}
