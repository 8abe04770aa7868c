// Package main is the entry point for the meerkat CLI binary.
package main

import (
	"os"

	cli "github.com/devrev/meerkat-sub004/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
