// Command normstore checks entity schemas and runs store scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/normstore/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
