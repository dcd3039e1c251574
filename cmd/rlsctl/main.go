// Package main is the entry point for the rlsctl binary.
package main

import (
	"os"

	"qs-rls-manager/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
