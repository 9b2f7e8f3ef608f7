// Command ordex inspects ordered stores, secondary indexes and
// notification consolidation from YAML fixtures.
package main

import (
	"os"

	"github.com/roach88/ordex/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
