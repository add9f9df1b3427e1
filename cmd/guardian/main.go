// Command guardian runs the MCP Guardian proxy: a policy-enforcing
// intermediary between an MCP host and an MCP server subprocess.
package main

import "github.com/mcp-guardian/guardian/cmd/guardian/cmd"

func main() {
	cmd.Execute()
}
