// Package main is the entry point for the cloud-waste CLI.
package main

import (
	"os"

	"cloud-waste/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
