package main

import (
	"fmt"
	"os"

	"github.com/congo-pay/ftledger/internal/cli"
	"github.com/congo-pay/ftledger/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
