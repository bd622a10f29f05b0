// Package main implements the lexis command: the HTTP API server for
// adaptive vocabulary practice, its database migrations and the vocabulary
// importer.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
