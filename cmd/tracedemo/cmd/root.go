// Package cmd implements tracedemo's cobra command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tracedemo",
	Short: "Demo host for the methodtrace call-instrumentation engine",
	Long: `tracedemo wires a Monitoring Controller, Call Stack Tracker, and
Reporter Pipeline around a simulated workload, streaming traced calls to
a websocket live view and persisting them via CSV/Rantt/Txt and,
optionally, Postgres or SQLite.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version metadata shown by `tracedemo version`.
func SetVersion(v, bt, gc string) {
	version, buildTime, gitCommit = v, bt, gc
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tracedemo version %s\n", version)
		fmt.Printf("build time: %s\n", buildTime)
		fmt.Printf("git commit: %s\n", gitCommit)
	},
}
