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

type matchParams struct {
	modelParams
	format *util.EnumFlag
}

func newMatchParams() matchParams {
	return matchParams{
		modelParams: newModelParams(),
		format:      formats.Flag(formats.Pretty, formats.JSON, formats.YAML),
	}
}

var configuredMatchParams = newMatchParams()

var matchCommand = &cobra.Command{
	Use:   "match <path>",
	Short: "Match rule patterns against the initial population",
	Long: `Compile an MLSpace model and report, for every left-hand side entity of
every rule, which entities of the initial population satisfy it and how many
copies of them exist. Nested contents are included.

Rates and attribute comparisons referencing variables that are not global are
evaluated against the model's variables and initial species counts.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no model file specified")
		}
		return env.CmdFlags.CheckEnvironmentVariables(cmd)
	},
	Run: func(_ *cobra.Command, args []string) {
		os.Exit(match(args, &configuredMatchParams, os.Stdout, os.Stderr))
	},
}

func match(args []string, params *matchParams, stdout io.Writer, stderr io.Writer) int {
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

	matches := c.Model.MatchInit(c.Model.Env())
	out := pr.Output{
		Matches:  pr.NewMatchResults(matches),
		Warnings: warnings(format, c),
		Metrics:  params.report(m),
	}
	if err := writeOutput(stdout, format, out); err != nil {
		outputErrors(stderr, format, err)
		return 1
	}

	for _, pm := range matches {
		if len(pm.Errors) > 0 {
			return 2
		}
	}
	return 0
}

func init() {
	addOutputFormat(matchCommand.Flags(), configuredMatchParams.format)
	configuredMatchParams.addFlags(matchCommand.Flags())
	addMetricsFlag(matchCommand.Flags(), &configuredMatchParams.metrics)
	RootCommand.AddCommand(matchCommand)
}
