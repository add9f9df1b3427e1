// Package cmd provides Guardian's CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "MCP Guardian - a policy-enforcing proxy for the Model Context Protocol",
	Long: `MCP Guardian sits between an MCP host and an MCP server subprocess,
inspecting every JSON-RPC message against a declarative guard profile:
drop, log, route to manual approval, or forward unchanged.

Configuration is loaded from guardian.yaml in the current directory,
$HOME/.guardian/, or /etc/guardian/. Environment variables can override
config values with the GUARDIAN_ prefix, e.g. GUARDIAN_GUARD_PROFILE.

Commands:
  run            Run an MCP server under Guardian's policy enforcement
  guard-profile  Manage the on-disk guard-profile catalog
  version        Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./guardian.yaml)")
}
