// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mlspace/mlspace/util"
)

func TestInvalidJSONInput(t *testing.T) {
	cases := [][]byte{
		[]byte("{ \"k\": 1 }\n{}}"),
		[]byte("{ \"k\": 1 }\n!!!}"),
	}
	for _, tc := range cases {
		var x any
		err := util.UnmarshalJSON(tc, &x)
		if err == nil {
			t.Errorf("should be an error")
		}
	}
}

func TestUnmarshalYAMLAndJSON(t *testing.T) {
	tests := []struct {
		note  string
		input string
	}{
		{note: "yaml", input: "k: 5\nmode: fast\nrange: \"1:10\"\n"},
		{note: "json", input: `{"k": 5, "mode": "fast", "range": "1:10"}`},
	}
	expected := map[string]any{"k": json.Number("5"), "mode": "fast", "range": "1:10"}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			var x map[string]any
			if err := util.Unmarshal([]byte(tc.input), &x); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(expected, x); diff != "" {
				t.Errorf("unexpected result (-want, +got):\n%s", diff)
			}
		})
	}
}
