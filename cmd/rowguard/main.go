// Package main is the entrypoint for the rowguard CLI.
// The CLI manages records in the caller's owned slice of the managed
// warehouse table and provides session and connectivity diagnostics.
package main

import (
	"os"

	"github.com/rowguard-labs/rowguard/internal/cli"
)

func main() {
	os.Exit(cli.New().Execute())
}
