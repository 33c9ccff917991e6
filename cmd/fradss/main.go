// Command fradss serves and operates the Forest Rights claim decision-support
// engine.
package main

import (
	"os"

	"github.com/turtacn/ForestRights-DSS/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
