// Package main provides the xcsp2cpo CLI.
package main

import (
	"os"

	"github.com/cspkit/xcsp2cpo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
