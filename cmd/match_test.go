// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mlspace/mlspace/cmd/formats"
	pr "github.com/mlspace/mlspace/internal/presentation"
	"github.com/mlspace/mlspace/util/test"
)

func testMatch(t *testing.T, model string, params *matchParams) (int, []byte, []byte) {
	t.Helper()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	var errc int

	test.WithTempFS(map[string]string{"/model.mls": model}, func(path string) {
		errc = match([]string{filepath.Join(path, "model.mls")}, params, stdout, stderr)
	})
	return errc, stdout.Bytes(), stderr.Bytes()
}

func TestMatchJSON(t *testing.T) {
	model := `k = 2;
A(x: {1, 2, 3});
B();
grow: A(x: 1) -> A(x: 2) @ k;
A(x: > 1) + B -> B @ 1;
k A(x: 1);
3 A(x: 3);
1 B[1 A(x: 2)];
`
	params := newMatchParams()
	if err := params.format.Set(formats.JSON); err != nil {
		t.Fatal(err)
	}

	errc, stdout, stderr := testMatch(t, model, &params)
	if errc != 0 {
		t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
	}

	var out struct {
		Matches []pr.MatchResult `json:"matches"`
	}
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatal(err)
	}

	exp := []pr.MatchResult{
		{Rule: "grow", Index: 0, Pattern: "A(x: == 1)", Matches: []pr.MatchCount{{Entity: "A(x: 1)", Count: 2}}},
		{Rule: "rule@5:1", Index: 0, Pattern: "A(x: > 1)", Matches: []pr.MatchCount{{Entity: "A(x: 3)", Count: 3}, {Entity: "A(x: 2)", Count: 1}}},
		{Rule: "rule@5:1", Index: 1, Pattern: "B", Matches: []pr.MatchCount{{Entity: "B()[1 A(x: 2)]", Count: 1}}},
	}
	if diff := cmp.Diff(exp, out.Matches); diff != "" {
		t.Fatalf("Unexpected matches (-want, +got):\n%s", diff)
	}
}

func TestMatchPretty(t *testing.T) {
	params := newMatchParams()
	errc, stdout, stderr := testMatch(t, cellsModel, &params)
	if errc != 0 {
		t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
	}
	for _, exp := range []string{"grow", "A(x: 1)"} {
		if !strings.Contains(string(stdout), exp) {
			t.Fatalf("Expected output to contain %q, got:\n%s", exp, stdout)
		}
	}
}

func TestMatchErrors(t *testing.T) {
	params := newMatchParams()
	errc, stdout, stderr := testMatch(t, "A(); 1 B;", &params)
	if errc != 1 {
		t.Fatalf("Expected exit code 1, got %v", errc)
	}
	if len(stdout) > 0 {
		t.Fatalf("Expected no stdout output, got:\n%s", stdout)
	}
	if !strings.Contains(string(stderr), "species B is not defined") {
		t.Fatalf("Unexpected stderr: %s", stderr)
	}
}
