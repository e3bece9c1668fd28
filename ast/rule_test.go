// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entityName string

func (n entityName) String() string { return string(n) }

func TestRuleSideBuilder(t *testing.T) {
	b := NewRuleSideBuilder[entityName]()
	b.AddEntity("Cell")
	require.False(t, b.IsContextSet())
	require.NoError(t, b.MakeLastContext(nil))
	require.True(t, b.IsContextSet())
	require.True(t, b.IsContextOpen())
	b.AddEntity("A")
	b.AddEntity("B")
	require.NoError(t, b.CloseContext(nil))
	b.AddEntity("C")

	side, err := b.Build(nil)
	require.NoError(t, err)

	ctx, ok := side.ContextEntity()
	assert.True(t, ok)
	assert.Equal(t, entityName("Cell"), ctx)
	assert.Equal(t, 4, side.Len())
	assert.Equal(t, []bool{false, true, true, false}, side.Contained)
	assert.Equal(t, "Cell[A, B], C", side.String())
}

func TestRuleSideBuilderErrors(t *testing.T) {
	tests := []struct {
		note  string
		build func(b *RuleSideBuilder[entityName]) error
	}{
		{
			note: "context without entity",
			build: func(b *RuleSideBuilder[entityName]) error {
				return b.MakeLastContext(nil)
			},
		},
		{
			note: "second context",
			build: func(b *RuleSideBuilder[entityName]) error {
				b.AddEntity("A")
				_ = b.MakeLastContext(nil)
				_ = b.CloseContext(nil)
				b.AddEntity("B")
				return b.MakeLastContext(nil)
			},
		},
		{
			note: "stray closing bracket",
			build: func(b *RuleSideBuilder[entityName]) error {
				b.AddEntity("A")
				return b.CloseContext(nil)
			},
		},
		{
			note: "unclosed context",
			build: func(b *RuleSideBuilder[entityName]) error {
				b.AddEntity("A")
				_ = b.MakeLastContext(nil)
				b.AddEntity("B")
				_, err := b.Build(nil)
				return err
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			err := tc.build(NewRuleSideBuilder[entityName]())
			if !IsError(MalformedRuleSideErr, err) {
				t.Fatalf("Expected malformed rule side error, got %v", err)
			}
		})
	}
}

func TestRuleSideWithoutContext(t *testing.T) {
	b := NewRuleSideBuilder[entityName]()
	b.AddEntity("A")
	b.AddEntity("B")
	side, err := b.Build(nil)
	require.NoError(t, err)

	_, ok := side.ContextEntity()
	assert.False(t, ok)
	assert.Equal(t, "A, B", side.String())

	empty, err := NewRuleSideBuilder[entityName]().Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, "", empty.String())
}

func TestCompiledRules(t *testing.T) {
	model := MustCompileModel(`
		k = 0.5;
		Cell(size: [0..inf));
		A(x: {1, 2});
		grow: Cell[A(x: 1)] -> Cell(size *= 2)[A(x: 2), A(x: 2)] @ k * #A;
		A(x: 1) + A(x: 1) -> A(x: 2) @ k;
		-> A(x: 1) @ 3;
	`)

	require.Equal(t, 3, model.Rules.Len())

	tests := []struct {
		str      string
		deferred bool
	}{
		{"grow: Cell[A(x: == 1)] -> Cell(size *= 2)[A(x: 2), A(x: 2)] @ k * #A", true},
		{"A(x: == 1), A(x: == 1) -> A(x: 2) @ 0.5", false},
		{" -> A(x: 1) @ 3", false},
	}
	for i, r := range model.Rules.All() {
		assert.Equal(t, tests[i].str, r.String())
		assert.Equal(t, tests[i].deferred, r.Rate.IsDeferred())
	}

	grow := model.Rules.At(0)
	ctx, ok := grow.RHSContext()
	require.True(t, ok)
	assert.Equal(t, "Cell", ctx.Species)
	assert.Equal(t, []string{"#A", "k"}, grow.Rate.FreeVars())

	rate, err := grow.Rate.Number(Bindings{"k": NewSingleValue(Number(0.5)), "#A": NewSingleValue(Number(10))})
	require.NoError(t, err)
	assert.InDelta(t, 5, rate, 1e-12)

	bs, err := json.Marshal(grow)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "grow", "lhs": "Cell[A(x: == 1)]", "rhs": "Cell(size *= 2)[A(x: 2), A(x: 2)]", "rate": "k * #A", "deferred": true}`, string(bs))
}

func TestRuleCollectionFrozen(t *testing.T) {
	c := &RuleCollection{}
	c.Append(&Rule{Name: "a"})
	c.Freeze()
	assert.Panics(t, func() { c.Append(&Rule{Name: "b"}) })
	assert.Equal(t, 1, c.Len())
}
