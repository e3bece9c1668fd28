// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package repl implements a Read-Eval-Print-Loop (REPL) for evaluating
// numeric expressions and value sets against model variables.
//
// The REPL is typically used from the command line, however, it can also be
// used as a library.
package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"

	"github.com/mlspace/mlspace/ast"
	pr "github.com/mlspace/mlspace/internal/presentation"
)

// Error is the error type returned by the REPL.
type Error struct {
	Code    string
	Message string
}

func (err *Error) Error() string {
	return fmt.Sprintf("%v: %v", err.Code, err.Message)
}

// BadArgsErr indicates bad arguments were provided to a built-in REPL
// command.
const BadArgsErr string = "bad arguments"

// REPL represents an instance of the interactive shell.
type REPL struct {
	output io.Writer
	env    ast.Bindings

	outputFormat string
	historyPath  string
	initPrompt   string
	banner       string
}

// New returns a new instance of the REPL. env holds the initial bindings;
// it is copied.
func New(env ast.Bindings, historyPath string, output io.Writer, outputFormat string, banner string) *REPL {
	bindings := make(ast.Bindings, len(env))
	for name, r := range env {
		bindings[name] = r
	}
	return &REPL{
		output:       output,
		env:          bindings,
		outputFormat: outputFormat,
		historyPath:  historyPath,
		initPrompt:   "> ",
		banner:       banner,
	}
}

// Loop will run until the user enters "exit", Ctrl+C, Ctrl+D, ctx is
// cancelled or an unexpected error occurs.
func (r *REPL) Loop(ctx context.Context) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	r.loadHistory(line)

	if len(r.banner) > 0 {
		fmt.Fprintln(r.output, r.banner)
	}

	line.SetCompleter(r.complete)

	for ctx.Err() == nil {
		input, err := line.Prompt(r.initPrompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(r.output, "Exiting")
			break
		}
		if err != nil {
			fmt.Fprintln(r.output, "error (fatal):", err)
			os.Exit(1)
		}

		if err := r.OneShot(input); err != nil {
			var s stop
			if errors.As(err, &s) {
				line.AppendHistory(input)
				break
			}
			fmt.Fprintln(r.output, "error:", err)
		}

		line.AppendHistory(input)
	}

	r.saveHistory(line)
}

// OneShot evaluates the line and prints the result. If an error occurs it is
// returned for the caller to display.
func (r *REPL) OneShot(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if cmd := newCommand(line); cmd != nil {
		switch cmd.op {
		case "show":
			return r.cmdShow()
		case "unset":
			return r.cmdUnset(cmd.args)
		case "json":
			return r.cmdFormat("json")
		case "pretty":
			return r.cmdFormat("pretty")
		case "help":
			return r.cmdHelp()
		case "exit":
			return r.cmdExit()
		}
	}

	if name, value, ok := splitDefinition(line); ok {
		return r.define(name, value)
	}
	return r.eval(line)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// splitDefinition splits "name = valset" and "name := valset".
func splitDefinition(line string) (string, string, bool) {
	for _, sep := range []string{":=", "="} {
		if name, value, ok := strings.Cut(line, sep); ok {
			name = strings.TrimSpace(name)
			if identPattern.MatchString(name) {
				return name, strings.TrimSpace(strings.TrimSuffix(value, ";")), true
			}
		}
	}
	return "", "", false
}

func (r *REPL) define(name, value string) error {
	vs, err := ast.ParseValueSet(value)
	if err != nil {
		return err
	}
	v, err := ast.EvalValueSet(vs, r.env)
	if err != nil {
		return err
	}
	r.env[name] = v
	return nil
}

func (r *REPL) eval(line string) error {
	expr, err := ast.ParseExpr(line)
	if err != nil {
		return err
	}
	q, err := ast.NewQuantity(expr, r.env)
	if err != nil {
		return err
	}

	result := pr.NewExprResult(q)
	if r.outputFormat == "json" {
		return pr.JSON(r.output, result)
	}
	return pr.Pretty(r.output, pr.Output{Expr: result})
}

func (r *REPL) complete(line string) (c []string) {
	i := strings.LastIndexFunc(line, func(ch rune) bool {
		return !(ch == '_' || ch == '#' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z')
	})
	prefix, word := line[:i+1], line[i+1:]

	candidates := r.names()
	if i < 0 {
		for _, cmd := range builtin {
			candidates = append(candidates, cmd.name)
		}
	}
	for _, name := range candidates {
		if strings.HasPrefix(name, word) {
			c = append(c, prefix+name)
		}
	}
	slices.Sort(c)
	return c
}

func (r *REPL) names() []string {
	names := make([]string, 0, len(r.env))
	for name := range r.env {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *REPL) cmdShow() error {
	names := r.names()

	if r.outputFormat == "json" {
		values := make(map[string]string, len(names))
		for _, name := range names {
			values[name] = r.env[name].String()
		}
		buf, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(r.output, string(buf))
		return nil
	}

	table := tablewriter.NewWriter(r.output)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Variable", "Value"})
	for _, name := range names {
		table.Append([]string{name, r.env[name].String()})
	}
	table.Render()
	return nil
}

func (r *REPL) cmdUnset(args []string) error {
	if len(args) == 0 {
		return &Error{Code: BadArgsErr, Message: "unset <var>: expects at least one argument"}
	}
	for _, name := range args {
		if _, ok := r.env[name]; !ok {
			return &Error{Code: BadArgsErr, Message: fmt.Sprintf("unset %v: variable is not bound", name)}
		}
	}
	for _, name := range args {
		delete(r.env, name)
	}
	return nil
}

func (r *REPL) cmdFormat(s string) error {
	r.outputFormat = s
	return nil
}

func (r *REPL) cmdHelp() error {
	fmt.Fprintln(r.output, "")
	printHelpExamples(r.output, r.initPrompt)
	printHelpCommands(r.output)
	return nil
}

func (r *REPL) cmdExit() error {
	return stop{}
}

func (r *REPL) loadHistory(prompt *liner.State) {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Open(r.historyPath); err == nil {
		_, _ = prompt.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(prompt *liner.State) {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Create(r.historyPath); err == nil {
		_, _ = prompt.WriteHistory(f)
		f.Close()
	}
}

type stop struct{}

func (stop) Error() string {
	return "<stop>"
}

type commandDesc struct {
	name string
	args []string
	help string
}

func (c commandDesc) syntax() string {
	if len(c.args) > 0 {
		return fmt.Sprintf("%v %v", c.name, strings.Join(c.args, " "))
	}
	return c.name
}

type exampleDesc struct {
	example string
	comment string
}

var examples = [...]exampleDesc{
	{"k = 2", "bind k to a number"},
	{"sizes = {1, 2, 4}", "bind sizes to a set"},
	{"k^2 * PI", "evaluate an expression"},
	{"k * #Cell", "show the deferred form of an expression"},
}

var extra = [...]commandDesc{
	{"<expr>", []string{}, "evaluate the expression"},
	{"<var> = <valset>", []string{}, "bind a variable"},
}

var builtin = [...]commandDesc{
	{"show", []string{}, "show the bound variables"},
	{"unset", []string{"<var>"}, "unbind variables"},
	{"json", []string{}, "set output format to JSON"},
	{"pretty", []string{}, "set output format to pretty"},
	{"help", []string{}, "print this message"},
	{"exit", []string{}, "exit back to shell (or ctrl+c, ctrl+d)"},
}

type command struct {
	op   string
	args []string
}

func newCommand(line string) *command {
	p := strings.Fields(line)
	if len(p) == 0 {
		return nil
	}
	for _, c := range builtin {
		if c.name == strings.ToLower(p[0]) {
			return &command{
				op:   c.name,
				args: p[1:],
			}
		}
	}
	return nil
}

func printHelpExamples(output io.Writer, promptSymbol string) {
	fmt.Fprintln(output, "Examples")
	fmt.Fprintln(output, "========")
	fmt.Fprintln(output, "")

	maxLength := 0
	for _, ex := range examples {
		maxLength = max(maxLength, len(ex.example))
	}

	f := fmt.Sprintf("%v%%-%dv # %%v\n", promptSymbol, maxLength+1)
	for _, ex := range examples {
		fmt.Fprintf(output, f, ex.example, ex.comment)
	}

	fmt.Fprintln(output, "")
}

func printHelpCommands(output io.Writer) {
	fmt.Fprintln(output, "Commands")
	fmt.Fprintln(output, "========")
	fmt.Fprintln(output, "")

	all := extra[:]
	all = append(all, builtin[:]...)

	maxLength := 0
	for _, c := range all {
		maxLength = max(maxLength, len(c.syntax()))
	}

	f := fmt.Sprintf("%%%dv : %%v\n", maxLength)
	for _, c := range all {
		fmt.Fprintf(output, f, c.syntax(), c.help)
	}

	fmt.Fprintln(output, "")
}
