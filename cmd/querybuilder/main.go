package main

import (
	"os"

	"github.com/solatis/querybuilder/cmd/querybuilder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
