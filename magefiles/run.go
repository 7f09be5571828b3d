//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Run builds the CLI and runs discovery + enrichment for entries released on
// or after since (YYYY-MM-DD), writing into output/.
func Run(since string) error {
	mg.Deps(Build, Init)
	return sh.RunV("./bin/pdb-tracker", "run", "--since", since, "--output-dir", "output")
}

// Discover builds the CLI and writes the identifier list for since into output/.
func Discover(since string) error {
	mg.Deps(Build, Init)
	return sh.RunV("./bin/pdb-tracker", "discover", "--since", since, "--output-dir", "output")
}
