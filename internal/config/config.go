package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sigreer/fixswap/internal/blockdev"
	"github.com/sigreer/fixswap/internal/crypttab"
	"github.com/sigreer/fixswap/internal/runner"
	"gopkg.in/yaml.v3"
)

// DefaultJournalPath is where remediation history is kept
const DefaultJournalPath = "/var/lib/fixswap/journal.db"

type Config struct {
	Crypttab  string        `yaml:"crypttab"`
	ByUUIDDir string        `yaml:"by_uuid_dir"`
	Timeout   time.Duration `yaml:"timeout"`
	Blkid     string        `yaml:"blkid"`
	Fdisk     string        `yaml:"fdisk"`
	// Journal is the SQLite history path; "none" disables it
	Journal  string `yaml:"journal"`
	LogLevel string `yaml:"log_level"`
}

// defaultConfig matches a stock Pop!_OS / Ubuntu install
var defaultConfig = Config{
	Crypttab:  crypttab.DefaultPath,
	ByUUIDDir: blockdev.DefaultByUUIDDir,
	Timeout:   runner.DefaultTimeout,
	Blkid:     "blkid",
	Fdisk:     "fdisk",
	Journal:   DefaultJournalPath,
	LogLevel:  "info",
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Load reads the config at path. With an empty path the first existing default
// location is used, and with none found the built-in defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/fixswap/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/fixswap/config.yaml"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path == "" {
		cfg = defaultConfig
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			cfg = defaultConfig
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills every unset field from defaultConfig
func (c *Config) applyDefaults() {
	if c.Crypttab == "" {
		c.Crypttab = defaultConfig.Crypttab
	}
	if c.ByUUIDDir == "" {
		c.ByUUIDDir = defaultConfig.ByUUIDDir
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultConfig.Timeout
	}
	if c.Blkid == "" {
		c.Blkid = defaultConfig.Blkid
	}
	if c.Fdisk == "" {
		c.Fdisk = defaultConfig.Fdisk
	}
	if c.Journal == "" {
		c.Journal = defaultConfig.Journal
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultConfig.LogLevel
	}
}

// JournalEnabled reports whether remediation history should be recorded
func (c *Config) JournalEnabled() bool {
	return c.Journal != "none"
}
