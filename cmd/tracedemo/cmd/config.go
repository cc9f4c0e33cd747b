package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/methodtrace/cmd/tracedemo/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

func init() {
	configCmd.AddCommand(configExampleCmd)
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print a starter YAML configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		out, err := config.WriteExample(*cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}
