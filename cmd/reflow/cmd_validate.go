package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/validate"
)

var validatePhase string

var validateCmd = &cobra.Command{
	Use:   "validate [device...]",
	Short: "Run health checks against intent",
	Long: `Check each device's operational state against the intent model:
reachability, interface status, OSPF adjacencies, BGP sessions, and
partition presence.

A protocol that is not configured on a device is reported as a skip,
not a failure.

Examples:
  reflow validate
  reflow validate core-1 --phase post`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devs, err := resolveDevices(args)
		if err != nil {
			return err
		}

		phase := validate.Phase(validatePhase)
		if phase != validate.PhasePre && phase != validate.PhasePost {
			return fmt.Errorf("invalid phase %q: must be pre or post", validatePhase)
		}

		results := newValidator().Run(context.Background(), devs, phase)

		t := cli.NewTable("DEVICE", "CHECK", "STATUS", "DETAIL")
		for _, res := range results {
			t.Row(res.Device, res.Check, cli.Status(string(res.Status)), res.Detail)
		}
		t.Flush()

		s := validate.Summarize(results)
		fmt.Printf("\n%d passed, %d failed, %d skipped\n", s.Pass, s.Fail, s.Skip)
		if s.Fail > 0 {
			return fmt.Errorf("validation failed on %v", validate.FailedDevices(results))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validatePhase, "phase", "pre", "Validation phase: pre or post")
}
