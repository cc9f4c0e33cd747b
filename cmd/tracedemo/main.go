// Command tracedemo is a demo host for the methodtrace instrumentation
// engine: it drives a simulated workload through a Monitoring
// Controller and Call Stack Tracker, streams traced calls to a
// websocket live view, and persists them via the Reporter Pipeline's
// file and SQL writers.
package main

import (
	"fmt"
	"os"

	"github.com/vitaliisemenov/methodtrace/cmd/tracedemo/cmd"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cmd.SetVersion(version, buildTime, gitCommit)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
