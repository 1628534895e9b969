package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/store"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <device>",
	Short: "Restore a device's most recent backup",
	Long: `Restore the device's newest stored backup byte for byte and persist it.

No fresh backup is taken first: after a rollback the device runs exactly
the stored text, and the backup remains available for inspection.

Without -x the backup that would be restored is shown and nothing is
changed.

Examples:
  reflow rollback core-1        # Show which backup would be restored
  reflow rollback core-1 -x     # Restore it`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := repo.Get(args[0])
		if err != nil {
			return err
		}

		if !executeMode {
			backup, err := artifacts.LatestBackup(dev.Name)
			if err != nil {
				return err
			}
			fmt.Printf("Would restore %s to backup from %s (%d bytes). Use -x to execute.\n",
				dev.Name, backup.TakenAt.Format(store.BackupTimestampFormat), len(backup.Text))
			return nil
		}

		backup, err := newExecutor().Rollback(context.Background(), dev)
		if err != nil {
			return err
		}
		fmt.Printf("%s Restored %s to backup from %s\n",
			cli.Green("✓"), dev.Name, backup.TakenAt.Format(store.BackupTimestampFormat))
		return nil
	},
}

func init() {
	addWriteFlags(rollbackCmd)
}
