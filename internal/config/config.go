package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the configuration file discovered by upward search.
const FileName = "nsx-v2t.toml"

const (
	defaultTaskTimeoutMinutes  = 30
	defaultTaskIntervalSeconds = 10
)

// Config is the nsx-v2t.toml document. It names the Cloud Director endpoint
// and the entities one migration run validates; credentials never live here.
type Config struct {
	Host     string `toml:"host"`
	Insecure bool   `toml:"insecure"`

	Organization          string `toml:"organization"`
	SourceOrgVDC          string `toml:"source_org_vdc"`
	SourceProviderVDC     string `toml:"source_provider_vdc"`
	TargetProviderVDC     string `toml:"target_provider_vdc"`
	SourceExternalNetwork string `toml:"source_external_network"`
	TargetExternalNetwork string `toml:"target_external_network"`
	DummyExternalNetwork  string `toml:"dummy_external_network"`

	DiscoveryFile string `toml:"discovery_file"`

	TaskTimeoutMinutes  int `toml:"task_timeout_minutes"`
	TaskIntervalSeconds int `toml:"task_interval_seconds"`

	ConfigFilePath string `toml:"-"`
}

// TaskTimeout returns the task wait ceiling, defaulted when unset.
func (c *Config) TaskTimeout() time.Duration {
	minutes := c.TaskTimeoutMinutes
	if minutes <= 0 {
		minutes = defaultTaskTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// TaskInterval returns the task poll interval, defaulted when unset.
func (c *Config) TaskInterval() time.Duration {
	seconds := c.TaskIntervalSeconds
	if seconds <= 0 {
		seconds = defaultTaskIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ConfigDir returns the directory holding the discovered config file, or the
// empty string when no file was found.
func (c *Config) ConfigDir() string {
	if c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// Validate checks that every entity a validation run needs is named.
func (c *Config) Validate() error {
	required := []struct {
		value string
		key   string
	}{
		{c.Host, "host"},
		{c.Organization, "organization"},
		{c.SourceOrgVDC, "source_org_vdc"},
		{c.SourceProviderVDC, "source_provider_vdc"},
		{c.TargetProviderVDC, "target_provider_vdc"},
		{c.SourceExternalNetwork, "source_external_network"},
		{c.TargetExternalNetwork, "target_external_network"},
		{c.DummyExternalNetwork, "dummy_external_network"},
	}
	var missing []string
	for _, field := range required {
		if field.value == "" {
			missing = append(missing, field.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v (run 'nsx-v2t init' to create %s)", missing, FileName)
	}
	return nil
}

// LoadConfig searches upward from the working directory for nsx-v2t.toml,
// stopping at a project boundary. A missing file yields an empty Config so
// callers can report the missing fields instead of the missing file.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	dir := startDir
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFile(configPath)
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	config.ConfigFilePath = path
	return &config, nil
}

// Save writes the config as TOML to path.
func Save(config *Config, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}

// ErrNoCredentials is returned when neither the environment nor a dotenv
// file supplies the Cloud Director credentials.
var ErrNoCredentials = errors.New("VCD_USERNAME and VCD_PASSWORD are not set")
