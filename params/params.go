// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package params loads the parameter overrides applied to model variables
// before compilation. Overrides come from JSON, YAML or HCL files and from
// name=value pairs given on the command line.
package params

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/mlspace/mlspace/util"
)

// Params maps variable names to override values. Values are numbers, strings,
// booleans or lists of those, as accepted by ast.Compiler.WithOverrides.
type Params map[string]any

// Load reads the overrides stored at path. The format is chosen by the file
// extension: .hcl files are read as HCL attributes, anything else as YAML
// or JSON.
func Load(path string) (Params, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, bs)
}

// Parse decodes the overrides in bs. The name is used to pick the format and
// to report errors.
func Parse(name string, bs []byte) (Params, error) {
	if filepath.Ext(name) == ".hcl" {
		return ParseHCL(name, bs)
	}

	var doc map[string]any
	if err := util.Unmarshal(bs, &doc); err != nil {
		return nil, errors.Wrapf(err, "%v: parameters must be a YAML or JSON object", name)
	}

	p := make(Params, len(doc))
	for k, v := range doc {
		if err := checkValue(v); err != nil {
			return nil, errors.Wrapf(err, "%v: parameter %v", name, k)
		}
		p[k] = v
	}
	return p, nil
}

// ParseHCL decodes top-level HCL attributes. Expressions are evaluated
// without variables or functions, so only literal values, lists and
// arithmetic on literals are accepted.
func ParseHCL(name string, bs []byte) (Params, error) {
	file, diags := hclsyntax.ParseConfig(bs, name, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, "failed to parse HCL parameters")
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, "failed to decode HCL parameters")
	}

	p := make(Params, len(attrs))
	for attrName, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, errors.Wrapf(diags, "parameter %v", attrName)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, errors.Wrapf(err, "%v: parameter %v", attr.Range.String(), attrName)
		}
		p[attrName] = native
	}
	return p, nil
}

// ParseSet decodes name=value pairs. Values are kept as strings; the compiler
// reads them with the value set syntax, so "5", "1:10" and "{a, b}" are all
// valid.
func ParseSet(pairs []string) (Params, error) {
	p := make(Params, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", pair)
		}
		p[name] = strings.TrimSpace(value)
	}
	return p, nil
}

// Merge returns the union of p and other. Values in other win.
func (p Params) Merge(other Params) Params {
	out := make(Params, len(p)+len(other))
	maps.Copy(out, p)
	maps.Copy(out, other)
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

func checkValue(v any) error {
	switch v := v.(type) {
	case nil:
		return errors.New("must not be null")
	case map[string]any:
		return errors.New("nested objects are not supported")
	case []any:
		for _, x := range v {
			if _, ok := x.([]any); ok {
				return errors.New("nested lists are not supported")
			}
			if err := checkValue(x); err != nil {
				return err
			}
		}
	}
	return nil
}

func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, errors.New("must be a known value")
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, errors.Wrap(err, "could not convert number")
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		elems := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			if et := elem.Type(); et.IsListType() || et.IsTupleType() || et.IsSetType() {
				return nil, errors.New("nested lists are not supported")
			}
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, native)
		}
		return elems, nil
	}

	return nil, fmt.Errorf("unsupported value of type %v", ty.FriendlyName())
}
