// Package main implements the bloomopt CLI driver.
//
// bloomopt is the outer-surface glue that wires a manifest of enabled
// passes (parsed from a bloomopt.mod file, §10.3) into the scalar
// pass.Manager and the multi-module ipo.Manager, and runs them over a
// small demonstration program. The pipeline infrastructure it drives
// (PassManager/IPOPassManager, the IR itself) is the documented core;
// this command-line glue is deliberately outside that core's contract
// (§6, "command-line/driver glue" is an external collaborator).
//
// Usage:
//
//	bloomopt run [-manifest bloomopt.mod] [-opt 0..3] [-debug] [-v 0..2]
//	bloomopt stats [-manifest bloomopt.mod] [-opt 0..3]
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCommand(os.Args[2:])
	case "stats":
		statsCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("bloomopt version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`bloomopt - sea-of-nodes IR pass pipeline driver

USAGE:
    bloomopt <command> [arguments]

COMMANDS:
    run        Run the enabled passes over the demo program
    stats      Run the pipeline and print pass statistics only
    version    Show version information
    help       Show this help message

EXAMPLES:
    bloomopt run -manifest bloomopt.mod -opt 2
    bloomopt stats -opt 3 -debug

MANIFEST:
    bloomopt.mod lists which passes are enabled and at what minimum
    optimization level, in Go-module syntax:

        module example.org/pipeline

        require pass/constfold v0.0.0
        require pass/cse       v0.0.1
        require ipo/inlining   v0.0.2

    A require line's version patch component (v0.0.<N>) is the pass's
    minimum OptLevel; a pass absent from the manifest never runs. With no
    -manifest flag, every pass is enabled at OptLevel 0.
`)
}
