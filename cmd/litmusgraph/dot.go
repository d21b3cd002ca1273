package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sohambagchi/litmusgraph"
)

// DotCommand renders a litmus file's trace graph as Graphviz text.
type DotCommand struct{}

// NewDotCommand returns a new instance of DotCommand.
func NewDotCommand() *DotCommand {
	return &DotCommand{}
}

// Run executes the "dot" subcommand.
func (cmd *DotCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("litmusgraph-dot", flag.ContinueOnError)
	output := fs.String("o", "", "output path (default stdout)")
	deps := fs.Bool("deps", false, "include inferred dependency edges")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() != 1 {
		return fmt.Errorf("exactly one litmus file required")
	}

	g, err := parseFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if *deps {
		g.Edges = append(g.Edges, litmus.InferDependencies(g)...)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return litmus.WriteDOT(out, g)
}

func (cmd *DotCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: litmusgraph dot [arguments] FILE

Renders FILE's trace graph as a Graphviz document.

Arguments:

	-o PATH
	    Write output to PATH instead of stdout.

	-deps
	    Include inferred address/control/data dependency edges.
`[1:])
}
