// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlspace/mlspace/cmd/formats"
	"github.com/mlspace/mlspace/cmd/internal/env"
	pr "github.com/mlspace/mlspace/internal/presentation"
	"github.com/mlspace/mlspace/util"
)

type parseParams struct {
	modelParams
	format *util.EnumFlag
}

func newParseParams() parseParams {
	return parseParams{
		modelParams: newModelParams(),
		format:      formats.Flag(formats.Pretty, formats.JSON, formats.YAML),
	}
}

var configuredParseParams = newParseParams()

var parseCommand = &cobra.Command{
	Use:   "parse <path>",
	Short: "Parse and compile an MLSpace model",
	Long: `Parse and compile an MLSpace model file and print the compiled model.

The model's variables may be overridden with --set name=value pairs or with
parameter files given by --params. Values use the model's value syntax, so
--set 'n={1, 2}' and --set r=0:0.5:2 are valid.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no model file specified")
		}
		return env.CmdFlags.CheckEnvironmentVariables(cmd)
	},
	Run: func(_ *cobra.Command, args []string) {
		os.Exit(parse(args, &configuredParseParams, os.Stdout, os.Stderr))
	},
}

func parse(args []string, params *parseParams, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		return 0
	}

	format := params.format.String()
	m := params.newMetrics()

	c, err := compileModel(args[0], &params.modelParams, newLogger(stderr), m)
	if err != nil {
		outputErrors(stderr, format, err)
		return 1
	}

	out := pr.Output{
		Model:    c.Model,
		Warnings: warnings(format, c),
		Metrics:  params.report(m),
	}
	if err := writeOutput(stdout, format, out); err != nil {
		outputErrors(stderr, format, err)
		return 1
	}
	return 0
}

func init() {
	addOutputFormat(parseCommand.Flags(), configuredParseParams.format)
	configuredParseParams.addFlags(parseCommand.Flags())
	addMetricsFlag(parseCommand.Flags(), &configuredParseParams.metrics)
	RootCommand.AddCommand(parseCommand)
}
