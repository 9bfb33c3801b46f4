// Package main provides the entry point for the hvsearch CLI.
package main

import (
	"os"

	"github.com/hanviet/hvsearch/cmd/hvsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
