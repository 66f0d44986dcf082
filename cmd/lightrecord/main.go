// Package main is the entry point for the lightrecord CLI binary.
package main

import (
	"os"

	"github.com/go-mizu/lightrecord/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
