// Command ipg reads a grammar file written in ipg's compact EBNF-like
// notation and emits the Go source of a backtracking recursive-descent
// parser for it.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	root := NewRootCmd(afero.NewOsFs())
	if err := root.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
