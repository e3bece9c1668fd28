// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlspace/mlspace/logging"
	"github.com/mlspace/mlspace/logging/test"
	"github.com/mlspace/mlspace/metrics"
)

func TestInitExpansion(t *testing.T) {
	tests := []struct {
		note  string
		input string
		exp   map[string]int
	}{
		{
			note:  "loop variable as count and attribute",
			input: "Cell(id: [0..100]); for i = 1:1:3 { i Cell(id: i) };",
			exp:   map[string]int{"Cell(id: 1)": 1, "Cell(id: 2)": 2, "Cell(id: 3)": 3},
		},
		{
			note:  "nested loops see outer variables",
			input: "S(x: [0..10], y: [0..10]); for i = 1:2 { for j = i:2 { 1 S(x: i, y: j) } };",
			exp:   map[string]int{"S(x: 1, y: 1)": 1, "S(x: 1, y: 2)": 1, "S(x: 2, y: 2)": 1},
		},
		{
			note:  "stepped domain",
			input: "S(x: [0..10]); for x := 0:0.5:1 { 2 S(x: x) };",
			exp:   map[string]int{"S(x: 0)": 2, "S(x: 0.5)": 2, "S(x: 1)": 2},
		},
		{
			note:  "symbolic set domain",
			input: "S(c: {red, blue}); for c = {red, blue} { 1 S(c: c) };",
			exp:   map[string]int{"S(c: red)": 1, "S(c: blue)": 1},
		},
		{
			note:  "identical entities are summed",
			input: "S(); for i = 1:4 { 1 S }, 2 S;",
			exp:   map[string]int{"S()": 6},
		},
		{
			note:  "empty domain",
			input: "S(); for i = 3:1 { 1 S };",
			exp:   map[string]int{},
		},
		{
			note:  "non-positive counts contribute nothing",
			input: "S(x: [0..10]); 0 S(x: 1), -2 S(x: 2), 1 S(x: 3);",
			exp:   map[string]int{"S(x: 3)": 1},
		},
		{
			note:  "computed counts",
			input: "k = 4; S(); [k / 3] S, k^2 S;",
			exp:   map[string]int{"S()": 17},
		},
		{
			note:  "nested contents",
			input: "Cell(); A(); 2 Cell[3 A, for i = 1:2 { 1 A }];",
			exp:   map[string]int{"Cell()[5 A()]": 2},
		},
		{
			note:  "contents depend on loop variable",
			input: "Cell(id: [0..10]); A(); for i = 1:2 { 1 Cell(id: i)[i A] };",
			exp:   map[string]int{"Cell(id: 1)[1 A()]": 1, "Cell(id: 2)[2 A()]": 1},
		},
		{
			note:  "bound partners",
			input: "A() <s>; B(); 2 A<s: B>, 1 A<s: free>;",
			exp:   map[string]int{"A()<s: B()>": 2, "A()<s: free>": 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			c := compileWith(t, tc.input, nil)
			require.False(t, c.Failed(), "%v", c.Errors)
			if diff := cmp.Diff(tc.exp, c.Model.Init.Counts()); diff != "" {
				t.Fatalf("Unexpected population (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestInitLoopVariableScope(t *testing.T) {
	for _, input := range []string{
		"Cell(id: [0..100]); for i = 1:1:3 { i Cell(id: i) };",
		"Cell(id: [0..100]); for i = 1:1:3 { 1 Cell(id: i) };",
	} {
		c := compileWith(t, input, nil)
		require.False(t, c.Failed(), "%v", c.Errors)

		_, ok := c.Symbols().Peek("i")
		assert.False(t, ok, "loop variable must not outlive the loop")
		assert.Equal(t, 0, c.Symbols().Depth())
		assert.NotContains(t, c.Model.Variables, "i")
		assert.NotContains(t, c.Model.UsedVariables, "i")
		assert.Empty(t, c.Warnings)
	}
}

func TestInitLoopOneCellPerId(t *testing.T) {
	c := compileWith(t, "Cell(id: [0..100]); for i = 1:1:3 { 1 Cell(id: i) };", nil)
	require.False(t, c.Failed(), "%v", c.Errors)

	exp := map[string]int{"Cell(id: 1)": 1, "Cell(id: 2)": 1, "Cell(id: 3)": 1}
	if diff := cmp.Diff(exp, c.Model.Init.Counts()); diff != "" {
		t.Fatalf("Unexpected population (-want, +got):\n%s", diff)
	}
}

func TestInitLoopDomainTooLarge(t *testing.T) {
	_, _, err := CompileModel("m.mls", "S(x: [0..10]); for i = 0:1e19 { 1 S(x: 1) };", nil)
	require.True(t, IsError(NotEnumerableErr, err), "%v", err)
}

func TestInitCountOutOfRange(t *testing.T) {
	_, _, err := CompileModel("m.mls", "S(); 1e19 S;", nil)
	require.True(t, IsError(CompileErr, err), "%v", err)
	assert.Contains(t, err.Error(), "out of range")

	_, m, err := CompileModel("m.mls", "S(); -1e19 S, 1 S;", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"S()": 1}, m.Init.Counts())
}

func TestInitLoopShadowsVariable(t *testing.T) {
	logger := test.New()
	c := NewCompiler().WithLogger(logger)
	c.Compile(MustParseDocument("k = 5; S(x: [0..10]); for k = {1, 2} { 1 S(x: k) }, 1 S(x: k);"))
	require.False(t, c.Failed(), "%v", c.Errors)

	exp := map[string]int{"S(x: 1)": 1, "S(x: 2)": 1, "S(x: 5)": 1}
	if diff := cmp.Diff(exp, c.Model.Init.Counts()); diff != "" {
		t.Fatalf("Unexpected population (-want, +got):\n%s", diff)
	}

	r, ok := c.Symbols().Peek("k")
	require.True(t, ok)
	assert.Equal(t, "5", r.String())
	assert.Equal(t, "5", c.Model.Variables["k"].String())

	require.Len(t, c.Warnings, 1)
	assert.Equal(t, VariableOverrideWarning, c.Warnings[0].Code)
	assert.Equal(t, "loop variable k overrides k = 5 while the loop runs", c.Warnings[0].Message)
	assert.Equal(t, 1, logger.Count(logging.Warn))
	assert.Equal(t, "1:23", logger.Entries()[0].Fields["location"])
}

func TestInitLoopShadowWarnedOncePerLoop(t *testing.T) {
	c := compileWith(t, "k = 5; S(x: [0..10], y: [0..10]); for j = 1:3 { for k = {1, 2} { 1 S(x: k, y: j) } };", nil)
	require.False(t, c.Failed(), "%v", c.Errors)

	assert.Equal(t, 6, c.Model.Init.Len())
	require.Len(t, c.Warnings, 1)
	assert.Equal(t, VariableOverrideWarning, c.Warnings[0].Code)
}

func TestInitNestedLoopShadowsOuterLoop(t *testing.T) {
	c := compileWith(t, "S(x: [0..10]); for i = 1:2 { for i = {7} { 1 S(x: i) }, 1 S(x: i) };", nil)
	require.False(t, c.Failed(), "%v", c.Errors)

	exp := map[string]int{"S(x: 7)": 2, "S(x: 1)": 1, "S(x: 2)": 1}
	if diff := cmp.Diff(exp, c.Model.Init.Counts()); diff != "" {
		t.Fatalf("Unexpected population (-want, +got):\n%s", diff)
	}
	assert.Len(t, c.Warnings, 1)
}

func TestInitCountTruncation(t *testing.T) {
	c := compileWith(t, "S(); 2.5 S;", nil)
	require.False(t, c.Failed(), "%v", c.Errors)

	assert.Equal(t, map[string]int{"S()": 2}, c.Model.Init.Counts())
	require.Len(t, c.Warnings, 1)
	assert.Equal(t, TruncationWarning, c.Warnings[0].Code)
	assert.Equal(t, "count 2.5 truncated from 2.5 to 2", c.Warnings[0].Message)
}

func TestInitZeroCountStillChecked(t *testing.T) {
	_, _, err := CompileModel("", "S(); 0 S(z: 1);", nil)
	assert.True(t, IsError(UnknownAttributeErr, err), "%v", err)

	_, _, err = CompileModel("", "S(); for i = 3:1 { 1 S(z: 1) };", nil)
	assert.NoError(t, err, "empty loop bodies are never evaluated")
}

func TestInitLoopMetrics(t *testing.T) {
	m := metrics.New()
	c := NewCompiler().WithMetrics(m)
	c.Compile(MustParseDocument("S(); for i = 1:4 { for j = 1:2 { 1 S } };"))
	require.False(t, c.Failed(), "%v", c.Errors)

	hist := m.All()["histogram_"+metrics.InitLoopIterations].(map[string]any)
	assert.Equal(t, int64(5), hist["count"])
	assert.Equal(t, int64(4), hist["max"])
	assert.Equal(t, uint64(8), m.All()["counter_"+metrics.InitEntities])
}
