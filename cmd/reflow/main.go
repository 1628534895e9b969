// Reflow - Network Configuration Reconciliation Tool
//
// A CLI tool for declarative network device configuration:
//   - Intent model (fleet + per-device YAML) rendered to device configs
//   - Line-set diff between live and desired configuration
//   - Tier-ordered staged rollout with backup before every change
//   - Pre/post validation of protocol health
//   - Dry-run by default (preview changes, require -x to execute)
//
// Examples:
//
//	reflow list                         # Show fleet in deployment order
//	reflow generate                     # Render configs for all devices
//	reflow diff core-1                  # Delta between live and desired
//	reflow deploy                       # Dry run of the full pipeline
//	reflow deploy -x                    # Execute the rollout
//	reflow backup                       # Back up every device
//	reflow rollback core-1 -x           # Restore newest backup
//	reflow validate --phase post        # Health checks against intent
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reflow-net/reflow/pkg/audit"
	"github.com/reflow-net/reflow/pkg/deploy"
	"github.com/reflow-net/reflow/pkg/device"
	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/render"
	"github.com/reflow-net/reflow/pkg/settings"
	"github.com/reflow-net/reflow/pkg/store"
	"github.com/reflow-net/reflow/pkg/util"
	"github.com/reflow-net/reflow/pkg/validate"
)

var (
	// Global option flags
	intentDir    string
	templateDir  string
	outputDir    string
	storeBackend string
	redisAddr    string
	parallel     int
	verbose      bool

	// Global state
	userSettings *settings.Settings
	repo         *intent.Repository
	renderer     *render.Renderer
	artifacts    store.Store
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "reflow",
	Short:             "Network Configuration Reconciliation Tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Reflow reconciles declared network intent with the running fleet.

Intent YAML is rendered to device configuration, diffed against live
state, and rolled out tier by tier with a backup before every change.
Write commands preview by default; use -x to execute.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for certain commands
		if isSettingsOrHelp(cmd) {
			return nil
		}

		// Load user settings
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Apply defaults from settings
		if intentDir == "" {
			intentDir = userSettings.GetIntentDir()
		}
		if templateDir == "" {
			templateDir = userSettings.GetTemplateDir()
		}
		if outputDir == "" {
			outputDir = userSettings.GetOutputDir()
		}
		if storeBackend == "" {
			storeBackend = userSettings.GetStoreBackend()
		}
		if redisAddr == "" {
			redisAddr = userSettings.GetRedisAddr()
		}
		if parallel == 0 {
			parallel = userSettings.GetParallel()
		}

		// Set log level: quiet by default, verbose on -v
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		repo, err = intent.NewLoader(intentDir).Load()
		if err != nil {
			return fmt.Errorf("loading intent: %w", err)
		}

		renderer, err = render.New(templateDir)
		if err != nil {
			return fmt.Errorf("loading templates: %w", err)
		}

		artifacts, err = newStore()
		if err != nil {
			return fmt.Errorf("initializing %s store: %w", storeBackend, err)
		}

		// Initialize audit logger
		auditLogger, err := audit.NewFileLogger(filepath.Join(outputDir, "audit.log"), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&intentDir, "intent", "I", "", "Intent directory")
	rootCmd.PersistentFlags().StringVar(&templateDir, "templates", "", "Template directory")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "Artifact output directory (file store, audit log)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "Artifact store backend: file or redis")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the redis store backend")
	rootCmd.PersistentFlags().IntVarP(&parallel, "parallel", "p", 0, "Max concurrent device sessions")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "intent", Title: "Intent Operations:"},
		&cobra.Group{ID: "rollout", Title: "Rollout Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{listCmd, generateCmd, diffCmd} {
		cmd.GroupID = "intent"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{deployCmd, backupCmd, rollbackCmd, validateCmd, runCmd} {
		cmd.GroupID = "rollout"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version", "completion":
			return true
		}
	}
	return false
}

func newStore() (store.Store, error) {
	switch storeBackend {
	case settings.StoreRedis:
		return store.NewRedisStore(redisAddr)
	case settings.StoreFile:
		return store.NewFileStore(outputDir)
	}
	return nil, fmt.Errorf("unknown store backend %q", storeBackend)
}

func newProvider() device.Provider {
	return device.NewSSHProvider(repo.Fleet().Credentials)
}

func newExecutor() *deploy.Executor {
	ex := deploy.NewExecutor(newProvider(), artifacts)
	ex.User = currentUser()
	return ex
}

func newValidator() *validate.Runner {
	return validate.NewRunner(newProvider(), device.NewShowParser(), parallel)
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// resolveDevices maps positional device arguments to intent devices.
// No arguments selects the whole fleet.
func resolveDevices(args []string) ([]*intent.Device, error) {
	if len(args) == 0 {
		return repo.Devices(), nil
	}
	devs := make([]*intent.Device, 0, len(args))
	for _, name := range args {
		dev, err := repo.Get(name)
		if err != nil {
			// A name with no intent behind it is skipped, not fatal.
			util.WithDevice(name).Warnf("no intent for device, skipping")
			continue
		}
		devs = append(devs, dev)
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("none of the %d device argument(s) has intent: %w", len(args), util.ErrIntentNotFound)
	}
	return devs, nil
}
