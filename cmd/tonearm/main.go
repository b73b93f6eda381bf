// Command tonearm inspects and decodes audio files.
package main

import (
	"os"

	"tonearm.click/internal/cli"
)

func main() {
	os.Exit(cli.NewCLI().Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
