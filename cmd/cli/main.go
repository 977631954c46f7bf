package main

import (
	"os"

	"github.com/dmitrijs2005/filevault/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
