// Command rimcas is the original_source-facing name for the same CAS
// process cmd/rim runs (original_source's broker spawns a process named
// "cas" per AS slot; this binary name matches that convention for
// deployments that exec it directly rather than through cmd/rim).
package main

import (
	"os"

	"github.com/rimdb/rim/cmd/rim/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
