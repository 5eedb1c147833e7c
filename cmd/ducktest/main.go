// Command ducktest runs declarative suites and works with their TAP reports.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ducktest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ducktest:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
