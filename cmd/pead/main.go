package main

import (
	"os"

	"github.com/rustyeddy/pead/cmd/pead/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
