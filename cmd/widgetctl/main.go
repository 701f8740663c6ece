package main

import (
	"os"

	"github.com/gosuda/widgetboard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
