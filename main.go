package main

import (
	"os"

	"github.com/conneroisu/autotemplar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
