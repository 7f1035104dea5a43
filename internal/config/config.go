package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Listen  string        `yaml:"listen"` // bridge + catalog HTTP address
	Bridge  BridgeConfig  `yaml:"bridge,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Backup  BackupConfig  `yaml:"backup,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// BridgeConfig controls the page-facing websocket bridge.
type BridgeConfig struct {
	// AllowedOrigins is the exact-match origin allow-list. No wildcard or
	// subdomain matching.
	AllowedOrigins     []string `yaml:"allowed_origins,omitempty"`
	RequestTimeoutMS   int      `yaml:"request_timeout_ms,omitempty"`
	HandshakeTimeoutMS int      `yaml:"handshake_timeout_ms,omitempty"`
}

type StorageConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite database file
}

// BackupConfig schedules periodic copies of the storage database.
type BackupConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Schedule string `yaml:"schedule,omitempty"` // cron expression
	Dir      string `yaml:"dir,omitempty"`
	Keep     int    `yaml:"keep,omitempty"` // backups retained, oldest pruned
}

type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen: ":8787",
		Bridge: BridgeConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"https://rept.in",
				"https://right-click-search.ibrahimuzun.com",
			},
			RequestTimeoutMS:   2000,
			HandshakeTimeoutMS: 600,
		},
		Storage: StorageConfig{
			Path: filepath.Join(ConfigDir(), "rcs.db"),
		},
		Backup: BackupConfig{
			Enabled:  false,
			Schedule: "0 3 * * *",
			Dir:      filepath.Join(ConfigDir(), "backups"),
			Keep:     7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".rcs")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".rcs.yaml")
}

func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads a config file, filling unset fields from the defaults.
// A missing file is not an error; the defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}

// RequestTimeout returns the bridge request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.Bridge.RequestTimeoutMS <= 0 {
		return 2000 * time.Millisecond
	}
	return time.Duration(c.Bridge.RequestTimeoutMS) * time.Millisecond
}

// HandshakeTimeout returns the bridge handshake timeout as a duration.
func (c *Config) HandshakeTimeout() time.Duration {
	if c.Bridge.HandshakeTimeoutMS <= 0 {
		return 600 * time.Millisecond
	}
	return time.Duration(c.Bridge.HandshakeTimeoutMS) * time.Millisecond
}
