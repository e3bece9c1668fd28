// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package levenshtein computes "did you mean" suggestions for misspelled
// species, attribute and binding site names.
package levenshtein

import (
	"iter"
	"slices"

	"github.com/agnivade/levenshtein"
)

// ClosestStrings returns the candidates with the smallest edit distance to
// a, considering only candidates closer than minDistance.
func ClosestStrings(minDistance int, a string, candidates iter.Seq[string]) []string {
	closestStrings := []string{}
	for c := range candidates {
		levDist := levenshtein.ComputeDistance(a, c)
		switch {
		case levDist < minDistance:
			closestStrings = []string{c}
			minDistance = levDist
		case levDist == minDistance:
			closestStrings = append(closestStrings, c)
		}
	}
	slices.Sort(closestStrings)
	return closestStrings
}

// Suggest returns the closest candidates to a. Short names tolerate fewer
// edits than long ones.
func Suggest(a string, candidates iter.Seq[string]) []string {
	limit := len(a)/3 + 2
	return ClosestStrings(limit, a, candidates)
}
