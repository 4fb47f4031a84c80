// Command bridgepass runs the interop metadata passes over compiled-type
// streams.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bridgepass/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
