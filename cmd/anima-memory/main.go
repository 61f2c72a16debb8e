package main

import (
	"os"

	"github.com/GetAnima/anima-memory/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
