// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package env maps environment variables onto command flags. A flag --foo-bar
// of the root command is read from MLSPACE_FOO_BAR, the same flag of a
// subcommand "parse" from MLSPACE_PARSE_FOO_BAR. Flags set on the command
// line take precedence.
package env

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type cmdFlags interface {
	CheckEnvironmentVariables(command *cobra.Command) error
}

type cmdFlagsImpl struct{}

var (
	CmdFlags           cmdFlags = cmdFlagsImpl{}
	errorMessagePrefix          = "error mapping environment variables to command flags"
)

const globalPrefix = "mlspace"

// Prefix returns the environment variable prefix of command.
func Prefix(command *cobra.Command) string {
	if command.Name() == globalPrefix || !command.HasParent() {
		return globalPrefix
	}
	return fmt.Sprintf("%s_%s", globalPrefix, command.Name())
}

// VarName returns the environment variable read for flag of command.
func VarName(command *cobra.Command, flag string) string {
	return strings.ToUpper(Prefix(command) + "_" + configName(flag))
}

func configName(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func (cmdFlagsImpl) CheckEnvironmentVariables(command *cobra.Command) error {
	var errs []string
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix(Prefix(command))
	command.Flags().VisitAll(func(f *pflag.Flag) {
		name := configName(f.Name)
		if !f.Changed && v.IsSet(name) {
			val := v.Get(name)
			if err := command.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", errorMessagePrefix, strings.Join(errs, "; "))
}
