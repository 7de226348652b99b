// Package commands implements the saslctl CLI commands.
package commands

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AtelierNeon/gosasl/cmd/saslctl/cmdutil"
	"github.com/AtelierNeon/gosasl/internal/logger"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "saslctl",
	Short: "SASL negotiation inspector",
	Long: `saslctl drives the SASL mechanism selector and diagnostics engine
against a set of offered and preferred mechanisms without opening a
network connection.

Use "saslctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ConfigPath, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		if cmdutil.Flags.Verbose {
			logger.SetLevel("DEBUG")
		}
		if cmdutil.Flags.CorrelationID == "" {
			cmdutil.Flags.CorrelationID = uuid.New().String()
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a saslctl config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(diagnoseCmd)
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
