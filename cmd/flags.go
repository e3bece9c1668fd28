// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/spf13/pflag"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/util"
)

func addOutputFormat(fs *pflag.FlagSet, format *util.EnumFlag) {
	fs.VarP(format, "format", "f", "set output format")
}

func addMaxErrorsFlag(fs *pflag.FlagSet, errLimit *int) {
	fs.IntVarP(errLimit, "max-errors", "m", ast.DefaultErrorLimit, "set the number of errors to allow before parsing and compilation fail early (negative for no limit)")
}

func addIgnoreFlag(fs *pflag.FlagSet, ignoreNames *[]string) {
	fs.StringSliceVarP(ignoreNames, "ignore", "", []string{}, "set file and directory names to ignore during loading (e.g., '.*' excludes hidden files)")
}

func addSetFlag(fs *pflag.FlagSet, set *[]string) {
	fs.StringArrayVarP(set, "set", "s", []string{}, "override a model variable, e.g. --set k=5 or --set 'n={1, 2}'")
}

func addParamsFlag(fs *pflag.FlagSet, files *[]string) {
	fs.StringArrayVarP(files, "params", "p", []string{}, "load variable overrides from a JSON, YAML or HCL file (--set wins over files)")
}

func addMetricsFlag(fs *pflag.FlagSet, metrics *bool) {
	fs.BoolVarP(metrics, "metrics", "", false, "report parse, compile and expansion metrics")
}
