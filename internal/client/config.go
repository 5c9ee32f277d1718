package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const DefaultAPIURL = "http://localhost:8080"

// Config is the CLI state stored at ~/.medialib/config.
type Config struct {
	APIURL         string   `yaml:"api_url"`
	SyncAddr       string   `yaml:"sync_addr,omitempty"`
	NATSURL        string   `yaml:"nats_url,omitempty"`
	DefaultContext string   `yaml:"default_context,omitempty"`
	Token          string   `yaml:"token,omitempty"`
	Username       string   `yaml:"username,omitempty"`
	Recent         []string `yaml:"recent,omitempty"`
}

// Path returns the config file path.
func Path() string {
	if p := os.Getenv("MEDIALIB_CLI_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".medialib", "config")
}

// Load reads the config file. A missing file yields the defaults; a file
// readable by others is refused because it holds the token.
func Load() (*Config, error) {
	path := Path()
	cfg := &Config{APIURL: DefaultAPIURL, SyncAddr: "localhost:9090", DefaultContext: "media"}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		return nil, fmt.Errorf("config permissions too open: %04o (want 0600)", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}

// Save writes the config with owner-only permissions.
func (c *Config) Save() error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0o600)
}
