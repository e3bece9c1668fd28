// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"iter"
	"strings"
)

type hashEntry[K, V any] struct {
	k    K
	v    V
	next *hashEntry[K, V]
}

// HashMap represents a key/value map for keys that are not comparable with
// ==, e.g. structurally equal entities held by pointer.
type HashMap[K, V any] struct {
	eq    func(K, K) bool
	hash  func(K) int
	table map[int]*hashEntry[K, V]
	size  int
}

// NewHashMap returns a new empty HashMap.
func NewHashMap[K, V any](eq func(K, K) bool, hash func(K) int) *HashMap[K, V] {
	return &HashMap[K, V]{
		eq:    eq,
		hash:  hash,
		table: make(map[int]*hashEntry[K, V]),
		size:  0,
	}
}

// Copy returns a shallow copy of this HashMap.
func (h *HashMap[K, V]) Copy() *HashMap[K, V] {
	cpy := NewHashMap[K, V](h.eq, h.hash)
	for k, v := range h.All() {
		cpy.Put(k, v)
	}
	return cpy
}

// Get returns the value for k.
func (h *HashMap[K, V]) Get(k K) (V, bool) {
	hash := h.hash(k)
	for entry := h.table[hash]; entry != nil; entry = entry.next {
		if h.eq(entry.k, k) {
			return entry.v, true
		}
	}
	var empty V
	return empty, false
}

// Delete removes the key k.
func (h *HashMap[K, V]) Delete(k K) {
	hash := h.hash(k)
	var prev *hashEntry[K, V]
	for entry := h.table[hash]; entry != nil; entry = entry.next {
		if h.eq(entry.k, k) {
			if prev != nil {
				prev.next = entry.next
			} else {
				h.table[hash] = entry.next
			}
			h.size--
			return
		}
		prev = entry
	}
}

// All iterates the key/value pairs in unspecified order.
func (h *HashMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, entry := range h.table {
			for ; entry != nil; entry = entry.next {
				if !yield(entry.k, entry.v) {
					return
				}
			}
		}
	}
}

// Len returns the current size of this HashMap.
func (h *HashMap[K, V]) Len() int {
	return h.size
}

// Put inserts a key/value pair into this HashMap. If the key is already present, the existing
// value is overwritten.
func (h *HashMap[K, V]) Put(k K, v V) {
	hash := h.hash(k)
	head := h.table[hash]
	for entry := head; entry != nil; entry = entry.next {
		if h.eq(entry.k, k) {
			entry.v = v
			return
		}
	}
	h.table[hash] = &hashEntry[K, V]{k: k, v: v, next: head}
	h.size++
}

// Upsert replaces the value of k with f(old, found).
func (h *HashMap[K, V]) Upsert(k K, f func(old V, found bool) V) {
	hash := h.hash(k)
	head := h.table[hash]
	for entry := head; entry != nil; entry = entry.next {
		if h.eq(entry.k, k) {
			entry.v = f(entry.v, true)
			return
		}
	}
	var empty V
	h.table[hash] = &hashEntry[K, V]{k: k, v: f(empty, false), next: head}
	h.size++
}

func (h *HashMap[K, V]) String() string {
	var buf []string
	for k, v := range h.All() {
		buf = append(buf, fmt.Sprintf("%v: %v", k, v))
	}
	return "{" + strings.Join(buf, ", ") + "}"
}
