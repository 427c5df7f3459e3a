// Command strongholdcore triangulates a stronghold from eye-of-ender throws.
//
//	strongholdcore run                  # live session from the configured input
//	strongholdcore solve throws.txt     # one-shot estimate as JSON
//	strongholdcore sessions list        # archived sessions, newest first
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
