package main

import (
	"os"

	"github.com/quarrydb/quarry/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
