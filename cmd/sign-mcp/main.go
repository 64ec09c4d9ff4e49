// sign-mcp detects traffic signs in photos and explains them, either as an
// MCP server over stdio or from the command line.
//
// Usage:
//
//	sign-mcp serve [--config FILE]
//	sign-mcp detect IMAGE... [--threshold N] [--json] [--override LABEL] [--annotate-dir DIR] [--raw FILE]
//	sign-mcp explain LABEL...
//	sign-mcp labels
//	sign-mcp rules
//	sign-mcp config
//	sign-mcp version
package main

import (
	"fmt"
	"os"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
