// Command rim runs one Client Access Server (CAS) process: the request
// dispatcher described in spec §4.7, backed by a relational heap store
// and fed client connections handed off by a broker over a UNIX-domain
// socket (spec §4.6).
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
