// Package config provides configuration for glcm.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the repository-level configuration file, read from the work tree root.
const FileName = ".glcm.yaml"

// Config holds glcm configuration.
type Config struct {
	// Rev is the revision listed when none is given.
	Rev string `yaml:"rev"`
	// Exclude holds gitignore-style patterns hidden from printed listings.
	Exclude []string `yaml:"exclude"`
	// MaxRevisions caps the history walk (0 = unbounded).
	MaxRevisions int `yaml:"max_revisions"`
	// Cache enables the on-disk listing cache.
	Cache *bool `yaml:"cache"`
	// CacheDir is where the listing cache lives.
	CacheDir string `yaml:"cache_dir"`
	// Debug enables debug logging.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in defaults.
func Default() *Config {
	enabled := true
	return &Config{
		Rev:      "HEAD",
		Cache:    &enabled,
		CacheDir: defaultCacheDir(),
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "glcm")
	}
	return filepath.Join(os.TempDir(), "glcm-cache")
}

// CacheEnabled reports whether the listing cache should be used.
func (c *Config) CacheEnabled() bool {
	return c.Cache == nil || *c.Cache
}

// Load builds a Config from defaults, then the repository file under root
// (if present), then environment variables.
func Load(root string) (*Config, error) {
	cfg := Default()
	if root != "" {
		if err := cfg.mergeFile(filepath.Join(root, FileName)); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// mergeFile overlays values set in a YAML file. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if file.Rev != "" {
		c.Rev = file.Rev
	}
	if len(file.Exclude) > 0 {
		c.Exclude = append(c.Exclude, file.Exclude...)
	}
	if file.MaxRevisions != 0 {
		c.MaxRevisions = file.MaxRevisions
	}
	if file.Cache != nil {
		c.Cache = file.Cache
	}
	if file.CacheDir != "" {
		c.CacheDir = file.CacheDir
	}
	if file.Debug {
		c.Debug = true
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Rev = getEnv("GLCM_REV", c.Rev)
	if v := getEnv("GLCM_EXCLUDE", ""); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Exclude = append(c.Exclude, p)
			}
		}
	}
	c.MaxRevisions = getEnvInt("GLCM_MAX_REVISIONS", c.MaxRevisions)
	if getEnvBool("GLCM_NO_CACHE", false) {
		disabled := false
		c.Cache = &disabled
	}
	c.CacheDir = getEnv("GLCM_CACHE_DIR", c.CacheDir)
	c.Debug = getEnvBool("GLCM_DEBUG", c.Debug)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
