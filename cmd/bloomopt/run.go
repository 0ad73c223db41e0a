// run.go implements the 'bloomopt run' command.
package main

import (
	"flag"
	"fmt"
	"os"
)

// runCommand parses and runs the pipeline, printing its statistics to
// stdout.
func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to a bloomopt.mod manifest (default: every pass at opt level 0)")
	optLevel := fs.Int("opt", 0, "optimization level (0-3)")
	debugMode := fs.Bool("debug", false, "enable pass debug mode")
	verbosity := fs.Int("v", 0, "verbosity (0-2)")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	man, err := loadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := runPipeline(man, *optLevel, *debugMode, *verbosity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("module %q: %d function(s) remaining after IPO-DCE\n",
		res.ctx.Strings.Get(res.module.Name), len(res.module.Funcs))
	fmt.Println("\nscalar pass statistics:")
	res.scalarMgr.PrintStatistics(os.Stdout)
	fmt.Println("\nIPO pass statistics:")
	res.ipoMgr.PrintStatistics(os.Stdout)
}

// loadManifest reads and parses path, or returns the all-passes-enabled
// default manifest when path is empty.
func loadManifest(path string) (*Manifest, error) {
	if path == "" {
		return defaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(path, data)
}
