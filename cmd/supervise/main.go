package main

import (
	"os"

	"github.com/psantana5/supervise/cmd/supervise/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
