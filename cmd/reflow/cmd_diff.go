package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/store"
)

var diffCmd = &cobra.Command{
	Use:   "diff [device...]",
	Short: "Show delta between live and desired configuration",
	Long: `Connect to each device, capture its running configuration, and show the
line-set delta against the stored rendered configuration.

Comment lines and banners are ignored, so cosmetic differences never
show up as drift. Run 'reflow generate' first.

Examples:
  reflow diff
  reflow diff core-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devs, err := resolveDevices(args)
		if err != nil {
			return err
		}
		ex := newExecutor()
		ctx := context.Background()

		failures := 0
		drifted := 0
		for _, dev := range devs {
			desired, err := artifacts.ReadRendered(dev.Name)
			if err != nil {
				if errors.Is(err, store.ErrNoRendered) {
					return fmt.Errorf("no rendered configuration for %s: run 'reflow generate' first", dev.Name)
				}
				return err
			}

			d, err := ex.Preview(ctx, dev, desired)
			if err != nil {
				failures++
				fmt.Printf("%s %s: %v\n", cli.Red("✗"), cli.Bold(dev.Name), err)
				continue
			}
			if d.Empty() {
				fmt.Printf("%s %s: in sync\n", cli.Green("✓"), cli.Bold(dev.Name))
				continue
			}
			drifted++
			fmt.Printf("%s %s: %s\n%s\n", cli.Yellow("~"), cli.Bold(dev.Name), d.Summary(), d.String())
		}

		if failures > 0 {
			return fmt.Errorf("%d device(s) unreachable", failures)
		}
		if drifted > 0 {
			fmt.Printf("\n%d of %d device(s) drifted\n", drifted, len(devs))
		}
		return nil
	},
}
