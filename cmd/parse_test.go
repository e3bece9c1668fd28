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

	"gopkg.in/yaml.v3"

	"github.com/mlspace/mlspace/cmd/formats"
	"github.com/mlspace/mlspace/util/test"
)

const cellsModel = `k = 2;
A(x: {1, 2});
grow: A(x: 1) -> A(x: 2) @ k;
k A(x: 1);
`

type parsedModel struct {
	Model struct {
		Name      string            `json:"name"`
		Variables map[string]string `json:"variables"`
		Init      []struct {
			Entity string `json:"entity"`
			Count  int    `json:"count"`
		} `json:"init"`
	} `json:"model"`
	Warnings []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"warnings"`
	Metrics map[string]any `json:"metrics"`
}

func testParse(t *testing.T, files map[string]string, params *parseParams) (int, []byte, []byte, string) {
	t.Helper()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	var errc int

	var tempDirUsed string
	test.WithTempFS(files, func(path string) {
		var args []string
		for file := range files {
			if strings.HasSuffix(file, ".mls") {
				args = append(args, filepath.Join(path, file))
			}
		}
		for i, f := range params.files {
			params.files[i] = filepath.Join(path, f)
		}
		errc = parse(args, params, stdout, stderr)

		tempDirUsed = path
	})

	return errc, stdout.Bytes(), stderr.Bytes(), tempDirUsed
}

func jsonParseParams(t *testing.T) *parseParams {
	t.Helper()
	params := newParseParams()
	if err := params.format.Set(formats.JSON); err != nil {
		t.Fatal(err)
	}
	return &params
}

func TestParseExit0(t *testing.T) {
	files := map[string]string{
		"/cells.mls": cellsModel,
	}
	params := newParseParams()
	errc, stdout, stderr, _ := testParse(t, files, &params)
	if errc != 0 {
		t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
	}
	if len(stderr) > 0 {
		t.Fatalf("Expected no stderr output, got:\n%s\n", string(stderr))
	}

	for _, exp := range []string{"Model: cells", "grow", "A(x: 1)"} {
		if !strings.Contains(string(stdout), exp) {
			t.Fatalf("Expected output to contain %q, got:\n%s", exp, stdout)
		}
	}
}

func TestParseExit1(t *testing.T) {
	files := map[string]string{
		"/x.mls": `???`,
	}
	params := newParseParams()
	errc, _, stderr, _ := testParse(t, files, &params)
	if errc != 1 {
		t.Fatalf("Expected exit code 1, got %v", errc)
	}
	if len(stderr) == 0 {
		t.Fatalf("Expected output in stderr")
	}
}

func TestParseJSONOutput(t *testing.T) {
	files := map[string]string{
		"/cells.mls": cellsModel,
	}
	errc, stdout, stderr, _ := testParse(t, files, jsonParseParams(t))
	if errc != 0 {
		t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
	}

	var out parsedModel
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatalf("Expected JSON output, got %v:\n%s", err, stdout)
	}
	if out.Model.Name != "cells" || out.Model.Variables["k"] != "2" {
		t.Fatalf("Unexpected model: %s", stdout)
	}
	if len(out.Model.Init) != 1 || out.Model.Init[0].Entity != "A(x: 1)" || out.Model.Init[0].Count != 2 {
		t.Fatalf("Unexpected init: %s", stdout)
	}
	if out.Metrics != nil || out.Warnings != nil {
		t.Fatalf("Expected no metrics and warnings: %s", stdout)
	}
}

func TestParseYAMLOutput(t *testing.T) {
	files := map[string]string{
		"/cells.mls": cellsModel,
	}
	params := newParseParams()
	if err := params.format.Set(formats.YAML); err != nil {
		t.Fatal(err)
	}
	errc, stdout, stderr, _ := testParse(t, files, &params)
	if errc != 0 {
		t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
	}

	var out struct {
		Model struct {
			Name string `yaml:"name"`
		} `yaml:"model"`
	}
	if err := yaml.Unmarshal(stdout, &out); err != nil {
		t.Fatal(err)
	}
	if out.Model.Name != "cells" {
		t.Fatalf("Unexpected output:\n%s", stdout)
	}
}

func TestParseOverrides(t *testing.T) {
	files := map[string]string{
		"/cells.mls":  cellsModel,
		"/sweep.yaml": "k: 4\n",
		"/sweep2.hcl": "k = 5\n",
	}

	tests := []struct {
		note  string
		set   []string
		files []string
		exp   int
	}{
		{note: "file", files: []string{"sweep.yaml"}, exp: 4},
		{note: "later file wins", files: []string{"sweep.yaml", "sweep2.hcl"}, exp: 5},
		{note: "set wins over files", files: []string{"sweep.yaml"}, set: []string{"k=7"}, exp: 7},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			params := jsonParseParams(t)
			params.set = tc.set
			params.files = append([]string{}, tc.files...)
			errc, stdout, stderr, _ := testParse(t, files, params)
			if errc != 0 {
				t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
			}
			var out parsedModel
			if err := json.Unmarshal(stdout, &out); err != nil {
				t.Fatal(err)
			}
			if out.Model.Init[0].Count != tc.exp {
				t.Fatalf("Expected count %d, got %s", tc.exp, stdout)
			}
		})
	}
}

func TestParseErrorsJSON(t *testing.T) {
	files := map[string]string{
		"/cells.mls": "Cell(); 1 Cel;",
	}
	errc, stdout, stderr, _ := testParse(t, files, jsonParseParams(t))
	if errc != 1 {
		t.Fatalf("Expected exit code 1, got %v", errc)
	}
	if len(stdout) > 0 {
		t.Fatalf("Expected no stdout output, got:\n%s", stdout)
	}

	var out struct {
		Errors []struct {
			Code     string `json:"code"`
			Location struct {
				Row int `json:"row"`
				Col int `json:"col"`
			} `json:"location"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(stderr, &out); err != nil {
		t.Fatalf("Expected JSON errors, got %v:\n%s", err, stderr)
	}
	if len(out.Errors) != 1 || out.Errors[0].Code != "mlspace_undeclared_species_error" || out.Errors[0].Location.Col != 11 {
		t.Fatalf("Unexpected errors: %s", stderr)
	}
}

func TestParseBadSetPair(t *testing.T) {
	files := map[string]string{
		"/cells.mls": cellsModel,
	}
	params := newParseParams()
	params.set = []string{"k"}
	errc, _, stderr, _ := testParse(t, files, &params)
	if errc != 1 {
		t.Fatalf("Expected exit code 1, got %v", errc)
	}
	if !strings.Contains(string(stderr), "expected name=value") {
		t.Fatalf("Unexpected stderr: %s", stderr)
	}
}

func TestParseWarnings(t *testing.T) {
	files := map[string]string{
		"/cells.mls": cellsModel,
	}

	t.Run("json", func(t *testing.T) {
		params := jsonParseParams(t)
		params.set = []string{"zzz=1"}
		errc, stdout, stderr, _ := testParse(t, files, params)
		if errc != 0 {
			t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
		}
		var out parsedModel
		if err := json.Unmarshal(stdout, &out); err != nil {
			t.Fatal(err)
		}
		if len(out.Warnings) != 1 || out.Warnings[0].Code != "mlspace_unused_override_warning" {
			t.Fatalf("Unexpected warnings: %s", stdout)
		}
	})

	t.Run("pretty", func(t *testing.T) {
		params := newParseParams()
		params.set = []string{"zzz=1"}
		errc, stdout, stderr, _ := testParse(t, files, &params)
		if errc != 0 {
			t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
		}
		if !strings.Contains(string(stderr), "override zzz does not name a variable of the model") {
			t.Fatalf("Expected warning to be logged, got:\n%s", stderr)
		}
		if strings.Contains(string(stdout), "warning") {
			t.Fatalf("Expected warning only in the log, got:\n%s", stdout)
		}
	})
}

func TestParseMetrics(t *testing.T) {
	files := map[string]string{
		"/cells.mls": cellsModel,
	}
	params := jsonParseParams(t)
	params.metrics = true
	errc, stdout, stderr, _ := testParse(t, files, params)
	if errc != 0 {
		t.Fatalf("Expected exit code 0, got %v: %s", errc, stderr)
	}
	var out parsedModel
	if err := json.Unmarshal(stdout, &out); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"timer_load_files_ns", "timer_model_parse_ns", "timer_model_compile_ns", "counter_rules_compiled", "counter_init_entities"} {
		if _, ok := out.Metrics[key]; !ok {
			t.Errorf("Expected metric %v, got %v", key, out.Metrics)
		}
	}
}
