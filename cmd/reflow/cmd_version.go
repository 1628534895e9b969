package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("reflow dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("reflow %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}
