// Package main is the entry point for the callctl CLI.
package main

import (
	"os"

	"github.com/lukasbauer/callcontrol/cmd/callctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
