package main

import (
	"os"

	"github.com/gazekit/platform/cmd/gazectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
