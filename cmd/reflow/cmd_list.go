package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/plan"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List fleet devices in deployment order",
	Long: `List the fleet in the order a rollout would touch it: ascending tier,
dependencies before dependents within a tier.

Examples:
  reflow list
  reflow -I ./intent list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ordered, err := plan.Order(repo.Devices())
		if err != nil {
			return err
		}

		t := cli.NewTable("DEVICE", "ROLE", "TIER", "TEMPLATE", "MGMT IP", "DEPENDS ON")
		for _, dev := range ordered {
			deps := "-"
			if len(dev.DependsOn) > 0 {
				deps = strings.Join(dev.DependsOn, ", ")
			}
			t.Row(dev.Name, dev.Role, fmt.Sprintf("%d", dev.EffectiveTier()), dev.Template, dev.MgmtIP, deps)
		}
		t.Flush()

		fmt.Printf("\n%d device(s), templates: %s\n", len(ordered), strings.Join(renderer.Templates(), ", "))
		return nil
	},
}
