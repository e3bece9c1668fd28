// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
)

// Model is a compiled MLSpace model. It is read-only once returned by the
// compiler.
type Model struct {
	Name string

	// Variables holds the global variables after overrides were applied.
	Variables map[string]ValueRange

	// VariableOrder lists the variable names in definition order.
	VariableOrder []string

	// UsedVariables lists the variables read while compiling, sorted.
	UsedVariables []string

	Species *SpeciesRegistry
	Rules   *RuleCollection
	Init    *Population

	PeriodicBoundaries bool
	PostponeInit       bool
}

// Env returns an environment binding the global variables and the species
// counts "#Species" of the initial population.
func (m *Model) Env() Bindings {
	env := make(Bindings, len(m.Variables)+m.Species.Len())
	for name := range m.Species.Names() {
		env["#"+name] = NewSingleValue(Number(0))
	}
	m.Init.walk(1, func(e *InitEntity, n int) {
		key := "#" + e.SpeciesName()
		f, _ := SingletonNumber(env[key])
		env[key] = NewSingleValue(Number(f + float64(n)))
	})
	for name, r := range m.Variables {
		env[name] = r
	}
	return env
}

// walk visits every entity of the population including nested contents.
// n is the multiplicity of the enclosing entity.
func (p *Population) walk(n int, f func(*InitEntity, int)) {
	if p == nil {
		return
	}
	for _, entry := range p.Entries() {
		f(entry.Entity, n*entry.Count)
		entry.Entity.contents.walk(n*entry.Count, f)
	}
}

// PatternMatch lists the initial entities satisfying one left-hand side
// entity of a rule.
type PatternMatch struct {
	Rule    *Rule          `json:"-"`
	Index   int            `json:"index"`
	Pattern *EntityPattern `json:"-"`
	Context bool           `json:"context,omitempty"`
	Matches []*InitEntity  `json:"matches"`
	Errors  []*Error       `json:"errors,omitempty"`

	// Counts maps the key of each matching entity to its number of copies.
	Counts map[string]int `json:"counts"`
}

// MatchInit matches every left-hand side entity of every rule against the
// initial population, nested contents included. Deferred operands are
// evaluated against env; use Model.Env for the model's own bindings.
func (m *Model) MatchInit(env Env) []*PatternMatch {
	var out []*PatternMatch
	for _, rule := range m.Rules.All() {
		for i, p := range rule.LHS.Entities {
			pm := &PatternMatch{Rule: rule, Index: i, Pattern: p, Context: i == rule.LHS.Context, Counts: map[string]int{}}
			m.Init.walk(1, func(e *InitEntity, n int) {
				ok, err := p.Matches(e, env)
				if err != nil {
					pm.Errors = append(pm.Errors, asErrors(withLocation(err, p.Location))...)
					return
				}
				if !ok {
					return
				}
				if _, seen := pm.Counts[e.Key()]; !seen {
					pm.Matches = append(pm.Matches, e)
				}
				pm.Counts[e.Key()] += n
			})
			out = append(out, pm)
		}
	}
	return out
}

type modelJSON struct {
	Name               string            `json:"name"`
	Variables          map[string]string `json:"variables"`
	UsedVariables      []string          `json:"used_variables"`
	Species            *SpeciesRegistry  `json:"species"`
	Rules              *RuleCollection   `json:"rules"`
	Init               *Population       `json:"init"`
	PeriodicBoundaries bool              `json:"periodic_boundaries"`
	PostponeInit       bool              `json:"postpone_init"`
}

// MarshalJSON renders the model. Ranges and values use their source syntax.
func (m *Model) MarshalJSON() ([]byte, error) {
	vars := make(map[string]string, len(m.Variables))
	for name, r := range m.Variables {
		vars[name] = r.String()
	}
	used := m.UsedVariables
	if used == nil {
		used = []string{}
	}
	return json.Marshal(modelJSON{
		Name:               m.Name,
		Variables:          vars,
		UsedVariables:      used,
		Species:            m.Species,
		Rules:              m.Rules,
		Init:               m.Init,
		PeriodicBoundaries: m.PeriodicBoundaries,
		PostponeInit:       m.PostponeInit,
	})
}
