package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "convert":
		return NewConvertCommand().Run(ctx, args)
	case "dot":
		return NewDotCommand().Run(ctx, args)
	case "deps":
		return NewDepsCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`litmusgraph %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Litmusgraph converts litmus tests between text dialects and trace graphs.

Usage:

	litmusgraph <command> [arguments]

The commands are:

	convert     parse a litmus file and re-export it in a chosen dialect
	dot         render a litmus file's trace graph as Graphviz text
	deps        print inferred dependency edges for a litmus file
	help        this screen
`[1:])
}
