// Package main provides the gateway CLI for running shards from a terminal.
package main

import (
	"os"

	"github.com/gatewire/gateway/cmd/gateway-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
