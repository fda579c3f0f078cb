package main

import (
	"os"

	"github.com/kvisser/tempo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
