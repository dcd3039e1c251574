package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.rlsctl/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile holds per-environment defaults. Flags and environment variables
// take precedence over every field.
type Profile struct {
	MetaDB    string `yaml:"meta-db,omitempty"`
	AccountID string `yaml:"account-id,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Output    string `yaml:"output,omitempty"`
}

// ActiveProfile returns the named profile, or the current one when override
// is empty. A missing current profile is an empty profile; a missing named
// profile is an error.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	if override == "" {
		return c.Profiles[c.CurrentProfile], nil
	}
	p, ok := c.Profiles[override]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", override)
	}
	return p, nil
}

// ConfigDir returns the path to ~/.rlsctl/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rlsctl")
}

// ConfigPath returns the path to ~/.rlsctl/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func emptyUserConfig() *UserConfig {
	return &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
}

// LoadUserConfig reads ~/.rlsctl/config.yaml. A missing file yields an
// empty config.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return emptyUserConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	if cfg.CurrentProfile == "" {
		cfg.CurrentProfile = "default"
	}
	return &cfg, nil
}

// SaveUserConfig writes ~/.rlsctl/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
