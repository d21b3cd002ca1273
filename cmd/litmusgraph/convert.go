package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sohambagchi/litmusgraph"
)

// ConvertCommand parses a litmus file and re-exports it in a chosen dialect.
type ConvertCommand struct{}

// NewConvertCommand returns a new instance of ConvertCommand.
func NewConvertCommand() *ConvertCommand {
	return &ConvertCommand{}
}

// Run executes the "convert" subcommand.
func (cmd *ConvertCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("litmusgraph-convert", flag.ContinueOnError)
	dialect := fs.String("dialect", "macro", "output dialect: macro or atomics")
	output := fs.String("o", "", "output path (default stdout)")
	configPath := fs.String("config", "", "relation/memory-order config file")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("litmus file required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many files specified")
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	g, err := parseFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if invalid := g.Validate(config.Vocabulary()); invalid > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %d structurally invalid relation edge(s)\n", invalid)
	}
	if unknown := config.UnknownOrders(g); len(unknown) > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: memory order(s) not in config: %s\n", strings.Join(unknown, ", "))
	}

	var d litmus.Dialect
	switch *dialect {
	case "macro":
		d = litmus.DialectMacro
	case "atomics", "explicit-atomics":
		d = litmus.DialectAtomics
	default:
		return fmt.Errorf("unknown dialect %q", *dialect)
	}

	text, err := litmus.Export(g, d)
	if err != nil {
		return err
	}
	if *output == "" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(*output, []byte(text), 0644)
}

func (cmd *ConvertCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: litmusgraph convert [arguments] FILE

Parses FILE (pipe-table or C-style litmus text) and re-exports it.

Arguments:

	-dialect NAME
	    Output dialect: "macro" (default) or "atomics".

	-o PATH
	    Write output to PATH instead of stdout.

	-config PATH
	    YAML file with relation vocabulary and memory orders.
`[1:])
}
