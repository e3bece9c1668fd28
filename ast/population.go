// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mlspace/mlspace/util"
)

// InitEntity is a fully resolved instance template of the initial
// population. InitEntities are immutable; two entities with the same
// species, attribute values, partners and contents are the same key.
type InitEntity struct {
	species    string
	attributes map[string]Value
	partners   map[string]*InitEntity
	contents   *Population
	key        string
}

// NewInitEntity returns an instance template. partners maps occupied
// binding sites to the bound partner; contents may be nil.
func NewInitEntity(species string, attributes map[string]Value, partners map[string]*InitEntity, contents *Population) *InitEntity {
	e := &InitEntity{
		species:    species,
		attributes: attributes,
		partners:   partners,
		contents:   contents,
	}
	e.key = e.render()
	return e
}

// SpeciesName returns the species of the entity.
func (e *InitEntity) SpeciesName() string {
	return e.species
}

// Attribute returns the value of the attribute.
func (e *InitEntity) Attribute(name string) (Value, bool) {
	v, ok := e.attributes[name]
	return v, ok
}

// Attributes returns the attribute names in sorted order.
func (e *InitEntity) Attributes() []string {
	return sortedKeys(e.attributes)
}

// Partner returns the entity bound at site.
func (e *InitEntity) Partner(site string) (Instance, bool) {
	p, ok := e.partners[site]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// Contents returns the population nested inside the entity, or nil.
func (e *InitEntity) Contents() *Population {
	return e.contents
}

// Key returns the canonical form identifying the entity.
func (e *InitEntity) Key() string {
	return e.key
}

func (e *InitEntity) String() string {
	return e.key
}

func (e *InitEntity) render() string {
	var sb strings.Builder
	sb.WriteString(e.species)
	sb.WriteByte('(')
	for i, name := range sortedKeys(e.attributes) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(e.attributes[name].String())
	}
	sb.WriteByte(')')
	if len(e.partners) > 0 {
		sb.WriteByte('<')
		for i, site := range sortedKeys(e.partners) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(site)
			sb.WriteString(": ")
			if p := e.partners[site]; p != nil {
				sb.WriteString(p.key)
			} else {
				sb.WriteString("free")
			}
		}
		sb.WriteByte('>')
	}
	if e.contents != nil && e.contents.Len() > 0 {
		sb.WriteByte('[')
		for i, entry := range e.contents.Entries() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Itoa(entry.Count))
			sb.WriteByte(' ')
			sb.WriteString(entry.Entity.key)
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// PopulationEntry is an instance template and its initial copy count.
type PopulationEntry struct {
	Entity *InitEntity `json:"entity"`
	Count  int         `json:"count"`
}

// MarshalJSON renders the entity in its canonical form.
func (e *InitEntity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.key)
}

// Population maps instance templates to copy counts.
type Population struct {
	m *util.HashMap[*InitEntity, int]
}

// NewPopulation returns an empty population.
func NewPopulation() *Population {
	return &Population{m: util.NewHashMap[*InitEntity, int](initEntityEqual, initEntityHash)}
}

func initEntityEqual(a, b *InitEntity) bool {
	return a.key == b.key
}

func initEntityHash(e *InitEntity) int {
	return int(xxhash.Sum64String(e.key))
}

// Add adds n copies of e. Non-positive counts are ignored.
func (p *Population) Add(e *InitEntity, n int) {
	if n <= 0 {
		return
	}
	p.m.Upsert(e, func(old int, _ bool) int {
		return old + n
	})
}

// Merge adds every entry of other, summing counts of identical entities.
func (p *Population) Merge(other *Population) {
	for e, n := range other.m.All() {
		p.Add(e, n)
	}
}

// Get returns the count of e.
func (p *Population) Get(e *InitEntity) int {
	n, _ := p.m.Get(e)
	return n
}

// Len returns the number of distinct instance templates.
func (p *Population) Len() int {
	return p.m.Len()
}

// Total returns the sum of all counts.
func (p *Population) Total() int {
	var total int
	for _, n := range p.m.All() {
		total += n
	}
	return total
}

// Entries returns the entries sorted by canonical key.
func (p *Population) Entries() []PopulationEntry {
	out := make([]PopulationEntry, 0, p.m.Len())
	for e, n := range p.m.All() {
		out = append(out, PopulationEntry{Entity: e, Count: n})
	}
	slices.SortFunc(out, func(a, b PopulationEntry) int {
		return strings.Compare(a.Entity.key, b.Entity.key)
	})
	return out
}

// Counts returns the counts keyed by canonical entity key.
func (p *Population) Counts() map[string]int {
	out := make(map[string]int, p.m.Len())
	for e, n := range p.m.All() {
		out[e.key] = n
	}
	return out
}

func (p *Population) String() string {
	parts := make([]string, 0, p.m.Len())
	for _, entry := range p.Entries() {
		parts = append(parts, strconv.Itoa(entry.Count)+" "+entry.Entity.key)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON renders the population as a sorted array of entries.
func (p *Population) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Entries())
}
