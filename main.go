package main

import (
	"fmt"
	"os"

	"github.com/paulsmith/jjq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jjq: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
