// Package main is the entry point for the duckolap CLI binary.
package main

import (
	"os"

	cli "duck-olap/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
