package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/deploy"
	"github.com/reflow-net/reflow/pkg/store"
)

var backupList bool

var backupCmd = &cobra.Command{
	Use:   "backup [device...]",
	Short: "Capture device configuration backups",
	Long: `Capture and store the live running configuration of each device.

Backups are append-only: a new capture never overwrites an earlier one.
With --list, stored backups are shown instead of taking new ones.

Examples:
  reflow backup                   # Back up every device
  reflow backup core-1
  reflow backup core-1 --list     # Show stored backups`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devs, err := resolveDevices(args)
		if err != nil {
			return err
		}

		if backupList {
			t := cli.NewTable("DEVICE", "TAKEN AT")
			for _, dev := range devs {
				backups, err := artifacts.ListBackups(dev.Name)
				if err != nil {
					return err
				}
				for _, b := range backups {
					t.Row(dev.Name, b.TakenAt.Format(store.BackupTimestampFormat))
				}
			}
			t.Flush()
			return nil
		}

		ex := newExecutor()
		failures := ex.BackupAll(context.Background(), devs, parallel)

		for _, dev := range devs {
			if err, ok := failures[dev.Name]; ok {
				fmt.Printf("%s %s: %v\n", cli.Red("✗"), dev.Name, err)
			} else {
				fmt.Printf("%s %s\n", cli.Green("✓"), dev.Name)
			}
		}
		if len(failures) > 0 {
			return fmt.Errorf("backup failed on %d of %d device(s): %v",
				len(failures), len(devs), deploy.FailedDevices(failures))
		}
		return nil
	},
}

func init() {
	backupCmd.Flags().BoolVarP(&backupList, "list", "l", false, "List stored backups instead of capturing")
}
