package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sohambagchi/litmusgraph"
)

// DepsCommand prints inferred dependency edges for a litmus file.
type DepsCommand struct{}

// NewDepsCommand returns a new instance of DepsCommand.
func NewDepsCommand() *DepsCommand {
	return &DepsCommand{}
}

// Run executes the "deps" subcommand.
func (cmd *DepsCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("litmusgraph-deps", flag.ContinueOnError)
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
	edges := litmus.InferDependencies(g)
	if len(edges) == 0 {
		fmt.Println("no dependency edges")
		return nil
	}
	for _, e := range edges {
		src, dst := g.Node(e.Source), g.Node(e.Target)
		fmt.Printf("%s  P%d:%d %s -> P%d:%d %s\n", e.Type,
			src.ThreadID, src.SeqIndex, src.Op.Kind(),
			dst.ThreadID, dst.SeqIndex, dst.Op.Kind())
	}
	return nil
}

func (cmd *DepsCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: litmusgraph deps FILE

Prints the address/control/data dependency edges inferred from FILE.
`[1:])
}
