package main

import (
	"os"

	"github.com/forgeo/forgeoagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
