// Command statekeep runs and inspects checkpointed object spaces.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/statekeep/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
