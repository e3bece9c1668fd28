// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlspace/mlspace/cmd/formats"
	"github.com/mlspace/mlspace/cmd/internal/env"
	"github.com/mlspace/mlspace/filewatcher"
	"github.com/mlspace/mlspace/loader"
	"github.com/mlspace/mlspace/logging"
	"github.com/mlspace/mlspace/metrics"
	"github.com/mlspace/mlspace/util"
)

type checkParams struct {
	modelParams
	format *util.EnumFlag
	ignore []string
	watch  bool
}

func newCheckParams() checkParams {
	return checkParams{
		modelParams: newModelParams(),
		format:      formats.Flag(formats.Pretty, formats.JSON),
	}
}

func (p *checkParams) newLoader(m metrics.Metrics) *loader.FileLoader {
	return p.modelParams.newLoader(m).WithFilter(loader.IgnoreFilter(p.ignore))
}

// checkModels parses and compiles every model found at args. Models are
// compiled independently; the errors of all failed models are returned.
func checkModels(params *checkParams, args []string, logger logging.Logger) error {
	result, err := params.newLoader(metrics.NoOp()).All(args)
	if err != nil {
		return err
	}
	return compileAll(params, result, logger)
}

func compileAll(params *checkParams, result *loader.Result, logger logging.Logger) error {
	overrides, err := params.overrides()
	if err != nil {
		return err
	}
	_, err = result.Compile(params.configure(overrides, logger, metrics.NoOp()))
	return err
}

// parseCacheSize bounds the documents kept between reloads in watch mode.
const parseCacheSize = 1024

// checkWatch checks the models once and again whenever a file below args
// changes, until ctx is cancelled.
func checkWatch(ctx context.Context, params *checkParams, args []string, stdout io.Writer, logger logging.Logger) error {
	onReload := func(_ context.Context, elapsed time.Duration, result *loader.Result, err error) {
		if err == nil {
			err = compileAll(params, result, logger)
		}
		if err != nil {
			outputErrors(stdout, params.format.String(), err)
			return
		}
		fmt.Fprintf(stdout, "%d model(s) checked in %v\n", len(result.Models), elapsed.Round(time.Millisecond))
	}

	cache, err := loader.NewParseCache(parseCacheSize)
	if err != nil {
		return err
	}
	fl := params.newLoader(metrics.NoOp()).WithParseCache(cache)

	w := filewatcher.NewFileWatcher(args, fl, onReload, logger)
	w.Reload(ctx)
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func init() {
	checkParams := newCheckParams()

	checkCommand := &cobra.Command{
		Use:   "check <path> [path [...]]",
		Short: "Check MLSpace model files",
		Long: `Check MLSpace model files for parse and compilation errors.

Directories are searched recursively for files with the .mls extension. If
the 'check' command succeeds in parsing and compiling the model file(s), no
output is produced. If parsing or compiling fails, 'check' will output the
errors and exit with a non-zero exit code.

With --watch the models are checked again whenever a file changes.`,

		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("specify at least one file")
			}
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},

		Run: func(_ *cobra.Command, args []string) {
			logger := newLogger(os.Stderr)
			if checkParams.watch {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := checkWatch(ctx, &checkParams, args, os.Stdout, logger); err != nil {
					outputErrors(os.Stdout, checkParams.format.String(), err)
					os.Exit(1)
				}
				return
			}
			if err := checkModels(&checkParams, args, logger); err != nil {
				outputErrors(os.Stdout, checkParams.format.String(), err)
				os.Exit(1)
			}
		},
	}

	addOutputFormat(checkCommand.Flags(), checkParams.format)
	addIgnoreFlag(checkCommand.Flags(), &checkParams.ignore)
	checkParams.addFlags(checkCommand.Flags())
	checkCommand.Flags().BoolVarP(&checkParams.watch, "watch", "w", false, "watch the paths and check again on changes")
	RootCommand.AddCommand(checkCommand)
}
