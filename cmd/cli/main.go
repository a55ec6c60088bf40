// Package main is the entry point for the pgcat CLI binary.
package main

import (
	"os"

	cli "duck-pgcatalog/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
