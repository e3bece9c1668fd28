// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mlspace/mlspace/cmd/internal/env"
	internal_logging "github.com/mlspace/mlspace/internal/logging"
	"github.com/mlspace/mlspace/logging"
	"github.com/mlspace/mlspace/util"
)

type rootParams struct {
	logLevel  *util.EnumFlag
	logFormat *util.EnumFlag
}

var rootCommandParams = rootParams{
	logLevel:  util.NewEnumFlag("info", []string{"debug", "info", "warn", "error"}),
	logFormat: util.NewEnumFlag("text", []string{"text", "json", "json-pretty"}),
}

// RootCommand is the base CLI command that all subcommands are added to.
var RootCommand = &cobra.Command{
	Use:   "mlspace",
	Short: "MLSpace model language tools",
	Long:  "Parse, check and inspect rule-based MLSpace models.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return env.CmdFlags.CheckEnvironmentVariables(cmd.Root())
	},
}

// newLogger returns the logger diagnostics are reported to.
func newLogger(w io.Writer) logging.Logger {
	logger, err := internal_logging.NewLogger(rootCommandParams.logLevel.String(), rootCommandParams.logFormat.String(), "")
	if err != nil {
		// The enum flags only accept valid levels.
		panic(err)
	}
	logger.SetOutput(w)
	return logger
}

func init() {
	RootCommand.PersistentFlags().Var(rootCommandParams.logLevel, "log-level", "set log level")
	RootCommand.PersistentFlags().Var(rootCommandParams.logFormat, "log-format", "set log format")
}
