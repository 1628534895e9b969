package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.reflow/settings.json.

Settings provide defaults for global flags:
  - intent_dir:    Intent directory (-I flag default)
  - template_dir:  Template directory (--templates flag default)
  - output_dir:    Artifact output directory (--output flag default)
  - store_backend: Artifact store backend (--store flag default)
  - redis_addr:    Redis address (--redis-addr flag default)
  - parallel:      Session concurrency (-p flag default)

Examples:
  reflow settings show
  reflow settings set intent_dir /etc/reflow/intent
  reflow settings set store_backend redis
  reflow settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")

		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}

		printSetting("intent_dir", s.IntentDir)
		printSetting("template_dir", s.TemplateDir)
		printSetting("output_dir", s.OutputDir)
		printSetting("store_backend", s.StoreBackend)
		printSetting("redis_addr", s.RedisAddr)
		parallel := ""
		if s.Parallel > 0 {
			parallel = strconv.Itoa(s.Parallel)
		}
		printSetting("parallel", parallel)

		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, value := args[0], args[1]

		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch name {
		case "intent_dir":
			s.IntentDir = value
		case "template_dir":
			s.TemplateDir = value
		case "output_dir":
			s.OutputDir = value
		case "store_backend":
			if value != settings.StoreFile && value != settings.StoreRedis {
				return fmt.Errorf("store_backend must be %q or %q", settings.StoreFile, settings.StoreRedis)
			}
			s.StoreBackend = value
		case "redis_addr":
			s.RedisAddr = value
		case "parallel":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("parallel must be a positive integer")
			}
			s.Parallel = n
		default:
			return fmt.Errorf("unknown setting %q", name)
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("Set %s = %s\n", name, value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset all settings to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("Settings cleared")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsClearCmd)
}
