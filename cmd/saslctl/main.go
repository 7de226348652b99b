// Command saslctl is a small harness around pkg/sasl for inspecting
// mechanism selection and diagnostics without a live carrier connection.
package main

import (
	"os"

	"github.com/AtelierNeon/gosasl/cmd/saslctl/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
