package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/audit"
	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/store"
)

var generateShow bool

var generateCmd = &cobra.Command{
	Use:   "generate [device...]",
	Short: "Render device configurations from intent",
	Long: `Render each device's configuration from the intent model and store it.

Rendering is deterministic: the same intent always produces byte-identical
output, so a clean rerun never creates spurious diffs.

Without arguments every device is rendered.

Examples:
  reflow generate
  reflow generate core-1 edge-3
  reflow generate core-1 --show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devs, err := resolveDevices(args)
		if err != nil {
			return err
		}

		failures := 0
		t := cli.NewTable("DEVICE", "TEMPLATE", "RESULT")
		for _, dev := range devs {
			text, err := renderer.Render(repo, dev)
			if err == nil {
				err = artifacts.SaveRendered(dev.Name, text)
			}

			ev := audit.NewEvent(currentUser(), dev.Name, audit.OpGenerate)
			if err != nil {
				failures++
				t.Row(dev.Name, dev.Template, cli.Red(err.Error()))
				audit.Log(ev.WithError(err))
				continue
			}
			audit.Log(ev.WithSuccess())
			t.Row(dev.Name, dev.Template, cli.Green("ok"))

			if generateShow {
				t.Flush()
				fmt.Println()
				fmt.Print(text)
				fmt.Println()
			}
		}
		t.Flush()

		if failures > 0 {
			return fmt.Errorf("%d of %d device(s) failed to render", failures, len(devs))
		}
		if fs, ok := artifacts.(*store.FileStore); ok {
			fmt.Printf("\nRendered %d device(s) to %s\n", len(devs), fs.Root())
		} else {
			fmt.Printf("\nRendered %d device(s)\n", len(devs))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateShow, "show", false, "Print rendered configuration text")
}
