package main

import (
	"os"

	"github.com/psantana5/encbench/cmd/encbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
