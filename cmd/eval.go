// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/cmd/formats"
	"github.com/mlspace/mlspace/cmd/internal/env"
	pr "github.com/mlspace/mlspace/internal/presentation"
	"github.com/mlspace/mlspace/metrics"
	"github.com/mlspace/mlspace/util"
)

type evalParams struct {
	modelParams
	format *util.EnumFlag
	model  string
}

func newEvalParams() evalParams {
	return evalParams{
		modelParams: newModelParams(),
		format:      formats.Flag(formats.Pretty, formats.JSON, formats.YAML),
	}
}

var configuredEvalParams = newEvalParams()

var evalCommand = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate a numeric expression",
	Long: `Evaluate a numeric expression and print its value.

Variables are bound by --set and --params, or by the variables and initial
species counts (#Species) of the model given with --model. An expression
referencing unbound variables is not an error: it is printed in its deferred
form together with the variables it still needs.

Examples:

    $ mlspace eval '2 * PI'
    $ mlspace eval --set k=3 'k^2 + 1'
    $ mlspace eval --model cells.mls 'k * #Cell'`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("specify exactly one expression")
		}
		return env.CmdFlags.CheckEnvironmentVariables(cmd)
	},
	Run: func(_ *cobra.Command, args []string) {
		os.Exit(eval(args, &configuredEvalParams, os.Stdout, os.Stderr))
	},
}

func eval(args []string, params *evalParams, stdout io.Writer, stderr io.Writer) int {
	format := params.format.String()
	m := params.newMetrics()

	expr, err := ast.ParseExpr(args[0])
	if err != nil {
		outputErrors(stderr, format, err)
		return 1
	}

	bindings, err := evalBindings(params, stderr, m)
	if err != nil {
		outputErrors(stderr, format, err)
		return 1
	}

	var q ast.Quantity
	metrics.Time(m, metrics.ExprEval, func() {
		q, err = ast.NewQuantity(expr, bindings)
	})
	if err != nil {
		outputErrors(stderr, format, err)
		return 1
	}

	out := pr.Output{
		Expr:    pr.NewExprResult(q),
		Metrics: params.report(m),
	}
	if err := writeOutput(stdout, format, out); err != nil {
		outputErrors(stderr, format, err)
		return 1
	}
	return 0
}

func evalBindings(params *evalParams, stderr io.Writer, m metrics.Metrics) (ast.Env, error) {
	if params.model != "" {
		c, err := compileModel(params.model, &params.modelParams, newLogger(stderr), m)
		if err != nil {
			return nil, err
		}
		return c.Model.Env(), nil
	}
	overrides, err := params.overrides()
	if err != nil {
		return nil, err
	}
	return ast.BindOverrides(overrides)
}

func init() {
	addOutputFormat(evalCommand.Flags(), configuredEvalParams.format)
	configuredEvalParams.addFlags(evalCommand.Flags())
	addMetricsFlag(evalCommand.Flags(), &configuredEvalParams.metrics)
	evalCommand.Flags().StringVarP(&configuredEvalParams.model, "model", "", "", "bind the variables and species counts of a model file")
	RootCommand.AddCommand(evalCommand)
}
