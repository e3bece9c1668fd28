// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"slices"
	"strings"
)

// Instance is a candidate entity supplied by the simulation engine or taken
// from the initial population.
type Instance interface {
	SpeciesName() string
	// Attribute returns the current value of an attribute.
	Attribute(name string) (Value, bool)
	// Partner returns the instance bound at site. bound is false when the
	// site is free.
	Partner(site string) (partner Instance, bound bool)
}

// SiteConstraint restricts the occupancy of a binding site on a rule
// left-hand side.
type SiteConstraint interface {
	String() string
	siteConstraint()
}

// SiteFree requires the site to be unbound.
type SiteFree struct{}

// SiteOccupied requires the site to be bound to anything.
type SiteOccupied struct{}

// SiteBoundTo requires the site to be bound to an instance matching Pattern.
type SiteBoundTo struct {
	Pattern *EntityPattern
}

func (SiteFree) siteConstraint()     {}
func (SiteOccupied) siteConstraint() {}
func (*SiteBoundTo) siteConstraint() {}

func (SiteFree) String() string       { return "free" }
func (SiteOccupied) String() string   { return "occ" }
func (c *SiteBoundTo) String() string { return c.Pattern.String() }

// EntityPattern is a rule left-hand side entity. Attributes that are not
// named are unconstrained.
type EntityPattern struct {
	Species    string
	Attributes map[string]ValueMatch
	Sites      map[string]SiteConstraint
	Location   *Location
}

// NewEntityPattern returns an unconstrained pattern for species.
func NewEntityPattern(species string, loc *Location) *EntityPattern {
	return &EntityPattern{
		Species:    species,
		Attributes: map[string]ValueMatch{},
		Sites:      map[string]SiteConstraint{},
		Location:   loc,
	}
}

// Matches reports whether candidate satisfies the pattern. Operands of
// comparisons are evaluated against env.
func (p *EntityPattern) Matches(candidate Instance, env Env) (bool, error) {
	if candidate == nil || candidate.SpeciesName() != p.Species {
		return false, nil
	}

	for _, name := range sortedKeys(p.Attributes) {
		v, ok := candidate.Attribute(name)
		if !ok {
			return false, nil
		}
		ok, err := p.Attributes[name].Matches(v, env)
		if err != nil || !ok {
			return false, err
		}
	}

	for _, name := range sortedKeys(p.Sites) {
		partner, bound := candidate.Partner(name)
		switch c := p.Sites[name].(type) {
		case SiteFree:
			if bound {
				return false, nil
			}
		case SiteOccupied:
			if !bound {
				return false, nil
			}
		case *SiteBoundTo:
			if !bound {
				return false, nil
			}
			ok, err := c.Pattern.Matches(partner, env)
			if err != nil || !ok {
				return false, err
			}
		}
	}

	return true, nil
}

func (p *EntityPattern) String() string {
	var sb strings.Builder
	sb.WriteString(p.Species)
	if len(p.Attributes) > 0 {
		sb.WriteByte('(')
		for i, name := range sortedKeys(p.Attributes) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name + ": " + p.Attributes[name].String())
		}
		sb.WriteByte(')')
	}
	if len(p.Sites) > 0 {
		sb.WriteByte('<')
		for i, name := range sortedKeys(p.Sites) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name + ": " + p.Sites[name].String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
