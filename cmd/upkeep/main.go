package main

import (
	"os"

	"github.com/360Method/360-method-app-sub002/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
