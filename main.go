package main

import (
	"os"

	"worksheet/internal/cli"
)

// Version is set during build with -ldflags
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
