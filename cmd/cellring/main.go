package main

import (
	"os"

	"github.com/ahearne/cellring/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
