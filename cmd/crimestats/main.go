// Package main is the entrypoint for the crimestats CLI.
// The CLI serves the HTTP API, runs statistics queries locally and
// diagnoses the configured store.
package main

import (
	"os"

	"github.com/seguridad-santander/crimestats/internal/cli"
)

var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New().Execute())
}
