package main

import (
	"os"

	"github.com/foliobot/foliobot/cmd/foliobot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
