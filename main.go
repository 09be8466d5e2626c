package main

import (
	"os"

	"dashboard/internal/cli"
)

func main() {
	os.Exit(cli.New().Execute())
}
