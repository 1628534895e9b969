package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <device> <command...>",
	Short: "Run a read-only command on a device",
	Long: `Open a session to the device and run a single show command, printing
the raw output.

Examples:
  reflow run core-1 show ip bgp summary
  reflow run edge-2 show version`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := repo.Get(args[0])
		if err != nil {
			return err
		}
		command := strings.Join(args[1:], " ")

		ctx := context.Background()
		sess, err := newProvider().Connect(ctx, dev)
		if err != nil {
			return err
		}
		defer sess.Close()

		out, err := sess.Run(ctx, command)
		if err != nil {
			return err
		}
		fmt.Print(out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Println()
		}
		return nil
	},
}
