// Command arrhythmiactl runs the beat classifier offline.
//
// Usage:
//
//	arrhythmiactl [flags] <command> [args]
//
// Commands:
//
//	diagnose  - classify one beat from a JSON or CSV file
//	eval      - score a labelled MIT-BIH style CSV
//	ask       - query the keyword responder
//	model     - activate or roll back model bundles
package main

import (
	"fmt"
	"os"

	"github.com/straja-ai/arrhythmia/cmd/arrhythmiactl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
