package main

import (
	"os"

	"github.com/kubev2v/pdf-extractor/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
