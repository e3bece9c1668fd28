// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"iter"
	"slices"

	"github.com/mlspace/mlspace/internal/levenshtein"
)

// Attribute is a declared attribute of a species and its domain.
type Attribute struct {
	Name   string
	Domain ValueRange
}

// Site is a declared binding site of a species and its default relative
// angle in radians.
type Site struct {
	Name  string
	Angle float64
}

// Species is a declared entity type. Attributes and sites keep declaration
// order.
type Species struct {
	Name       string
	Attributes []Attribute
	Sites      []Site
	Location   *Location
}

// Attribute returns the declared attribute named name.
func (s *Species) Attribute(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// HasSite returns true if s declares the binding site.
func (s *Species) HasSite(name string) bool {
	for _, site := range s.Sites {
		if site.Name == name {
			return true
		}
	}
	return false
}

// AttributeNames returns the declared attribute names in order.
func (s *Species) AttributeNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, a := range s.Attributes {
			if !yield(a.Name) {
				return
			}
		}
	}
}

// SiteNames returns the declared binding site names in order.
func (s *Species) SiteNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, site := range s.Sites {
			if !yield(site.Name) {
				return
			}
		}
	}
}

// CheckAttribute returns an UnknownAttributeErr if s does not declare the
// attribute.
func (s *Species) CheckAttribute(name string, loc *Location) *Error {
	if _, ok := s.Attribute(name); ok {
		return nil
	}
	err := NewError(UnknownAttributeErr, loc, "species %v has no attribute %v", s.Name, name)
	err.Details = suggestionDetails{levenshtein.Suggest(name, s.AttributeNames())}
	return err
}

// CheckSite returns an UnknownBindingSiteErr if s does not declare the
// binding site.
func (s *Species) CheckSite(name string, loc *Location) *Error {
	if name == WildcardSite || s.HasSite(name) {
		return nil
	}
	err := NewError(UnknownBindingSiteErr, loc, "species %v has no binding site %v", s.Name, name)
	err.Details = suggestionDetails{levenshtein.Suggest(name, s.SiteNames())}
	return err
}

// MarshalJSON renders the species with its declarations as ordered arrays.
func (s *Species) MarshalJSON() ([]byte, error) {
	type attr struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	type site struct {
		Name  string  `json:"name"`
		Angle float64 `json:"angle"`
	}
	out := struct {
		Name       string `json:"name"`
		Attributes []attr `json:"attributes,omitempty"`
		Sites      []site `json:"sites,omitempty"`
	}{Name: s.Name}
	for _, a := range s.Attributes {
		out.Attributes = append(out.Attributes, attr{a.Name, a.Domain.String()})
	}
	for _, x := range s.Sites {
		out.Sites = append(out.Sites, site(x))
	}
	return json.Marshal(out)
}

// SpeciesRegistry holds the species of a model in declaration order.
type SpeciesRegistry struct {
	byName map[string]*Species
	order  []*Species
}

// NewSpeciesRegistry returns an empty registry.
func NewSpeciesRegistry() *SpeciesRegistry {
	return &SpeciesRegistry{byName: map[string]*Species{}}
}

// Register adds s. Species names are unique per model.
func (r *SpeciesRegistry) Register(s *Species) error {
	if prev, ok := r.byName[s.Name]; ok {
		return NewError(CompileErr, s.Location, "species %v already defined at %v", s.Name, prev.Location)
	}
	r.byName[s.Name] = s
	r.order = append(r.order, s)
	return nil
}

// Has returns true if name is a registered species. It has no side effects
// and is safe to call as a lookahead predicate.
func (r *SpeciesRegistry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Lookup returns the species named name.
func (r *SpeciesRegistry) Lookup(name string) (*Species, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Resolve returns the species named name or an UndeclaredSpeciesErr with
// suggestions.
func (r *SpeciesRegistry) Resolve(name string, loc *Location) (*Species, *Error) {
	if s, ok := r.byName[name]; ok {
		return s, nil
	}
	err := NewError(UndeclaredSpeciesErr, loc, "species %v is not defined", name)
	err.Details = suggestionDetails{levenshtein.Suggest(name, r.Names())}
	return nil, err
}

// Names returns the species names in declaration order.
func (r *SpeciesRegistry) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, s := range r.order {
			if !yield(s.Name) {
				return
			}
		}
	}
}

// All returns the species in declaration order.
func (r *SpeciesRegistry) All() []*Species {
	return slices.Clone(r.order)
}

// Len returns the number of registered species.
func (r *SpeciesRegistry) Len() int {
	return len(r.order)
}

// MarshalJSON renders the registry as an array in declaration order.
func (r *SpeciesRegistry) MarshalJSON() ([]byte, error) {
	if r.order == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.order)
}
