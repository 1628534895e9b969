package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/pipeline"
)

var (
	executeMode bool
	assumeYes   bool
)

// addWriteFlags registers -x/--execute and --yes as local flags on
// commands that can change devices.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Execute changes (default is dry-run)")
	cmd.Flags().BoolVar(&assumeYes, "yes", false, "Approve confirmation gates without prompting")
}

func gate() pipeline.Gate {
	if assumeYes {
		return pipeline.AutoGate{}
	}
	return pipeline.NewTerminalGate()
}

var deployCmd = &cobra.Command{
	Use:   "deploy [device...]",
	Short: "Run the full reconciliation pipeline",
	Long: `Render, pre-validate, preview, deploy, and post-validate the fleet.

Devices are deployed strictly in tier order (core first, edge last),
each one backed up before its first change command. The first failure
halts the rollout so later tiers are never touched from a broken base.

Without -x nothing is modified: the run stops after preview and reports
the deltas it would apply. With -x a confirmation gate precedes the
deploy phase; --yes approves it non-interactively.

Examples:
  reflow deploy                  # Dry run, whole fleet
  reflow deploy core-1 core-2    # Dry run, subset
  reflow deploy -x               # Execute, confirm on the terminal
  reflow deploy -x --yes         # Execute unattended`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &pipeline.Pipeline{
			Repo:      repo,
			Renderer:  renderer,
			Store:     artifacts,
			Executor:  newExecutor(),
			Validator: newValidator(),
			Gate:      gate(),
			Parallel:  parallel,
			Targets:   args,
		}

		report, err := p.Run(context.Background(), !executeMode)
		if report != nil {
			fmt.Println()
			report.Render(os.Stdout)
		}
		if err != nil {
			return err
		}
		if !report.Success() && report.Phase != pipeline.PhaseAborted {
			return fmt.Errorf("deployment finished with failures")
		}
		if report.Phase == pipeline.PhaseAborted {
			return fmt.Errorf("deployment aborted")
		}
		return nil
	},
}

func init() {
	addWriteFlags(deployCmd)
}
