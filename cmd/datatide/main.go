// Package main provides the CLI for the DataTide data quality toolkit.
package main

import (
	"os"

	"github.com/datatide-labs/datatide/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
