// Package main provides the entry point for the cowcatwaf gatekeeper.
package main

import (
	"os"

	"github.com/ethpandaops/cowcatwaf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
