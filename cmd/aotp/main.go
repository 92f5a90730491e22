package main

import (
	"os"

	"github.com/aot-inspect/cmd/aotp/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
