// Package main is the entry point for the cookplane CLI.
// The CLI is the terminal companion for driving cooking sessions,
// timers, and body doubling rooms against the cookplane API.
package main

import (
	"cookplane/cmd/cookctl/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
