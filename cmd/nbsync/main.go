// Command nbsync drives notebook sync scenarios and inspects the
// notifications they produce.
package main

import (
	"os"

	"github.com/roach88/nbsync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	os.Exit(cli.GetExitCode(err))
}
