// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command generate-cli-docs writes the mlspace command tree and its flags as
// JSON, for rendering the CLI reference.
package main

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mlspace/mlspace/cmd"
)

func main() {
	command := cmd.RootCommand
	command.DisableAutoGenTag = true

	cmdData := make([]map[string]any, 0)
	for _, c := range command.Commands() {
		if !showCommand(c) {
			continue
		}
		cmdData = append(cmdData, cmdToData(c))
	}

	if err := json.NewEncoder(os.Stdout).Encode(cmdData); err != nil {
		log.Fatal(err)
	}
}

func showCommand(c *cobra.Command) bool {
	return c.IsAvailableCommand() && !c.IsAdditionalHelpTopicCommand() && !c.Hidden
}

func cmdToID(c *cobra.Command) string {
	id, _, _ := strings.Cut(c.Use, " ")
	return id
}

func extractFlags(flagSet *pflag.FlagSet) []map[string]any {
	var result []map[string]any

	flagSet.VisitAll(func(f *pflag.Flag) {
		flagInfo := map[string]any{
			"name":        "--" + f.Name,
			"shorthand":   "",
			"type":        f.Value.Type(),
			"default":     f.DefValue,
			"description": f.Usage,
		}
		if f.Shorthand != "" {
			flagInfo["shorthand"] = "-" + f.Shorthand
		}
		result = append(result, flagInfo)
	})

	return result
}

func cmdToData(c *cobra.Command) map[string]any {
	childData := make([]map[string]any, 0)
	for _, childCmd := range c.Commands() {
		if showCommand(childCmd) {
			childData = append(childData, cmdToData(childCmd))
		}
	}

	return map[string]any{
		"id":           cmdToID(c),
		"use":          c.Use,
		"useline":      c.UseLine(),
		"short":        c.Short,
		"long":         c.Long,
		"flags":        extractFlags(c.NonInheritedFlags()),
		"parent_flags": extractFlags(c.InheritedFlags()),
		"children":     childData,
	}
}
