// Package cmdutil holds state shared across saslctl's subcommands.
package cmdutil

// GlobalFlags holds persistent-flag values synced from the root command so
// subcommands can read them without threading cobra.Command through every
// call.
type GlobalFlags struct {
	ConfigPath    string
	Verbose       bool
	CorrelationID string
}

// Flags is the process-wide GlobalFlags instance, populated by rootCmd's
// PersistentPreRun before any subcommand's RunE executes.
var Flags = &GlobalFlags{}
