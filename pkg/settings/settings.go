// Package settings manages persistent user settings for the reflow CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Store backend names accepted in settings and on the command line.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Settings holds persistent user preferences
type Settings struct {
	// IntentDir overrides the default intent directory
	IntentDir string `json:"intent_dir,omitempty"`

	// TemplateDir overrides the default template directory
	TemplateDir string `json:"template_dir,omitempty"`

	// OutputDir is where rendered configs and backups are kept when the
	// file store backend is in use
	OutputDir string `json:"output_dir,omitempty"`

	// StoreBackend selects the artifact store: "file" or "redis"
	StoreBackend string `json:"store_backend,omitempty"`

	// RedisAddr is the redis store address, host:port
	RedisAddr string `json:"redis_addr,omitempty"`

	// Parallel is the default session concurrency for backup and validate
	Parallel int `json:"parallel,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reflow_settings.json"
	}
	return filepath.Join(home, ".reflow", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetIntentDir returns the intent directory (with fallback)
func (s *Settings) GetIntentDir() string {
	if s.IntentDir != "" {
		return s.IntentDir
	}
	return "/etc/reflow/intent"
}

// GetTemplateDir returns the template directory (with fallback)
func (s *Settings) GetTemplateDir() string {
	if s.TemplateDir != "" {
		return s.TemplateDir
	}
	return "/etc/reflow/templates"
}

// GetOutputDir returns the artifact output directory (with fallback)
func (s *Settings) GetOutputDir() string {
	if s.OutputDir != "" {
		return s.OutputDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "reflow_output"
	}
	return filepath.Join(home, ".reflow", "output")
}

// GetStoreBackend returns the store backend name (with fallback)
func (s *Settings) GetStoreBackend() string {
	if s.StoreBackend != "" {
		return s.StoreBackend
	}
	return StoreFile
}

// GetRedisAddr returns the redis address (with fallback)
func (s *Settings) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return "localhost:6379"
}

// GetParallel returns the default session concurrency (with fallback)
func (s *Settings) GetParallel() int {
	if s.Parallel > 0 {
		return s.Parallel
	}
	return 4
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
