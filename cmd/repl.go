// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/cmd/formats"
	"github.com/mlspace/mlspace/cmd/internal/env"
	"github.com/mlspace/mlspace/metrics"
	"github.com/mlspace/mlspace/repl"
	"github.com/mlspace/mlspace/util"
	"github.com/mlspace/mlspace/version"
)

const defaultHistoryFile = ".mlspace_history"

type replParams struct {
	modelParams
	format      *util.EnumFlag
	model       string
	historyPath string
}

func newReplParams() replParams {
	return replParams{
		modelParams: newModelParams(),
		format:      formats.Flag(formats.Pretty, formats.JSON),
		historyPath: historyPath(),
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHistoryFile
	}
	return filepath.Join(home, defaultHistoryFile)
}

// newRepl returns a REPL bound to the variables and species counts of the
// --model file, or else to the overrides.
func newRepl(params *replParams, stdout io.Writer, stderr io.Writer) (*repl.REPL, error) {
	var bindings ast.Bindings
	if params.model != "" {
		c, err := compileModel(params.model, &params.modelParams, newLogger(stderr), metrics.NoOp())
		if err != nil {
			return nil, err
		}
		bindings = c.Model.Env()
	} else {
		overrides, err := params.overrides()
		if err != nil {
			return nil, err
		}
		if bindings, err = ast.BindOverrides(overrides); err != nil {
			return nil, err
		}
	}

	banner := fmt.Sprintf("MLSpace %v\nRun 'help' to see a list of commands.", version.Version)
	return repl.New(bindings, params.historyPath, stdout, params.format.String(), banner), nil
}

func init() {
	params := newReplParams()

	replCommand := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell",
		Long: `Start an interactive shell for evaluating numeric expressions.

Variables are bound with 'name = valset' and start out as the values given by
--set and --params, or as the variables and initial species counts (#Species)
of the model given with --model.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		Run: func(_ *cobra.Command, _ []string) {
			r, err := newRepl(&params, os.Stdout, os.Stderr)
			if err != nil {
				outputErrors(os.Stderr, formats.Pretty, err)
				os.Exit(1)
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()
			r.Loop(ctx)
		},
	}

	addOutputFormat(replCommand.Flags(), params.format)
	params.addFlags(replCommand.Flags())
	replCommand.Flags().StringVarP(&params.model, "model", "", "", "bind the variables and species counts of a model file")
	replCommand.Flags().StringVarP(&params.historyPath, "history", "H", params.historyPath, "set path of history file")
	RootCommand.AddCommand(replCommand)
}
