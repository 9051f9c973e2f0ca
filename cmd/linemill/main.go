package main

import (
	"fmt"
	"os"

	"github.com/aryankumar/linemill/internal/cli"
	"github.com/aryankumar/linemill/internal/util"
)

func main() {
	// Setup signal handling for graceful shutdown
	ctx := util.SetupSignalHandler()

	// Execute the CLI
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", util.FriendlyError(err))
		os.Exit(util.ExitCode(err))
	}
}
