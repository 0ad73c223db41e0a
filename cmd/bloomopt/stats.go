// stats.go implements the 'bloomopt stats' command: the same pipeline as
// 'run', but intended for scripts that only want the statistics table
// (no module-summary banner).
package main

import (
	"flag"
	"fmt"
	"os"
)

func statsCommand(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to a bloomopt.mod manifest (default: every pass at opt level 0)")
	optLevel := fs.Int("opt", 0, "optimization level (0-3)")
	debugMode := fs.Bool("debug", false, "enable pass debug mode")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	man, err := loadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := runPipeline(man, *optLevel, *debugMode, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("scalar pass statistics:")
	res.scalarMgr.PrintStatistics(os.Stdout)
	fmt.Println("\nIPO pass statistics:")
	res.ipoMgr.PrintStatistics(os.Stdout)
}
