// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/cmd/formats"
	pr "github.com/mlspace/mlspace/internal/presentation"
	"github.com/mlspace/mlspace/loader"
	"github.com/mlspace/mlspace/logging"
	"github.com/mlspace/mlspace/metrics"
	"github.com/mlspace/mlspace/params"
)

// modelParams are the flags shared by the commands compiling models.
type modelParams struct {
	set      []string
	files    []string
	errLimit int
	metrics  bool
}

func newModelParams() modelParams {
	return modelParams{errLimit: ast.DefaultErrorLimit}
}

func (p *modelParams) addFlags(fs *pflag.FlagSet) {
	addSetFlag(fs, &p.set)
	addParamsFlag(fs, &p.files)
	addMaxErrorsFlag(fs, &p.errLimit)
}

// overrides merges the parameter files in order and then the --set pairs.
func (p *modelParams) overrides() (params.Params, error) {
	out := params.Params{}
	for _, file := range p.files {
		ps, err := params.Load(file)
		if err != nil {
			return nil, err
		}
		out = out.Merge(ps)
	}
	set, err := params.ParseSet(p.set)
	if err != nil {
		return nil, err
	}
	return out.Merge(set), nil
}

func (p *modelParams) newMetrics() metrics.Metrics {
	if p.metrics {
		return metrics.New()
	}
	return metrics.NoOp()
}

func (p *modelParams) newLoader(m metrics.Metrics) *loader.FileLoader {
	return loader.NewFileLoader().
		WithParserOptions(ast.ParserOptions{ErrorLimit: p.errLimit}).
		WithMetrics(m)
}

func (p *modelParams) configure(overrides params.Params, logger logging.Logger, m metrics.Metrics) func(*ast.Compiler) *ast.Compiler {
	return func(c *ast.Compiler) *ast.Compiler {
		return c.WithOverrides(overrides).
			WithLogger(logger).
			WithMetrics(m).
			WithErrorLimit(p.errLimit)
	}
}

// compileModel loads and compiles the model file at path. A directory must
// hold exactly one model file.
func compileModel(path string, p *modelParams, logger logging.Logger, m metrics.Metrics) (*ast.Compiler, error) {
	overrides, err := p.overrides()
	if err != nil {
		return nil, err
	}

	result, err := p.newLoader(m).All([]string{path})
	if err != nil {
		return nil, err
	}

	switch n := len(result.Models); n {
	case 0:
		return nil, fmt.Errorf("%v: no model files found", path)
	case 1:
	default:
		return nil, fmt.Errorf("%v: expected one model file but found %d", path, n)
	}

	compilers, err := result.Compile(p.configure(overrides, logger, m))
	if err != nil {
		return nil, err
	}
	return compilers[result.Names()[0]], nil
}

// warnings returns the compiler warnings for structured output. Pretty
// output reports them through the logger only.
func warnings(format string, c *ast.Compiler) pr.OutputErrors {
	if format == formats.Pretty || len(c.Warnings) == 0 {
		return nil
	}
	return pr.NewOutputErrors(c.Warnings)
}

func writeOutput(w io.Writer, format string, out pr.Output) error {
	switch format {
	case formats.JSON:
		return pr.JSON(w, out)
	case formats.YAML:
		return pr.YAML(w, out)
	default:
		return pr.Pretty(w, out)
	}
}

func outputErrors(w io.Writer, format string, err error) {
	if err := writeOutput(w, format, pr.Output{Errors: pr.NewOutputErrors(err)}); err != nil {
		fmt.Fprintln(w, err)
	}
}

// report returns m if metrics were requested.
func (p *modelParams) report(m metrics.Metrics) metrics.Metrics {
	if p.metrics {
		return m
	}
	return nil
}
