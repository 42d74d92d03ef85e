// Package config loads tendril's YAML configuration and resolves the
// on-disk layout (content area, state directory, database path). A project
// is any directory holding a .tendril.yaml; commands walk up from the
// working directory to find it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"tendril/internal/selector"
)

// FileName is the per-project configuration file.
const FileName = ".tendril.yaml"

// GeneratorConfig describes the external collaborator invocation.
type GeneratorConfig struct {
	Binary         string `yaml:"binary"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxTurns       int    `yaml:"max_turns,omitempty"`
}

// FilterConfig tunes which discovered targets are worth queueing.
type FilterConfig struct {
	MinLength int      `yaml:"min_length"`
	Require   []string `yaml:"require,omitempty"`
	Exclude   []string `yaml:"exclude,omitempty"`
}

// PublishConfig controls git publication of merged pages.
type PublishConfig struct {
	Enabled bool `yaml:"enabled"`
	Push    bool `yaml:"push"`
}

// LogConfig controls the dual-output logger.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Config is the full runtime configuration.
type Config struct {
	ContentDir    string `yaml:"content_dir"`
	StateDir      string `yaml:"state_dir"`
	DBPath        string `yaml:"db_path"`
	RootSlug      string `yaml:"root_slug"`
	MaxDepth      int    `yaml:"max_depth"`
	Workers       int    `yaml:"workers"`
	MaxLoops      int    `yaml:"max_loops"`
	ScanEvery     int    `yaml:"scan_every"`
	RetentionDays int    `yaml:"retention_days"`

	Generator GeneratorConfig `yaml:"generator"`
	Filter    FilterConfig    `yaml:"filter"`
	Publish   PublishConfig   `yaml:"publish"`
	Log       LogConfig       `yaml:"log"`

	Seeds   []selector.Seed `yaml:"seeds,omitempty"`
	Palette []string        `yaml:"palette,omitempty"`

	// Dir is the project directory the config was loaded from. Relative
	// paths resolve against it. Not serialized.
	Dir string `yaml:"-"`
}

// Default returns the configuration written by `tendril init`.
func Default() Config {
	return Config{
		ContentDir:    "pages",
		StateDir:      ".tendril",
		DBPath:        ".tendril/tendril.db",
		RootSlug:      "index",
		MaxDepth:      3,
		Workers:       2,
		MaxLoops:      10,
		ScanEvery:     5,
		RetentionDays: 7,
		Generator: GeneratorConfig{
			Binary:         "claude",
			TimeoutSeconds: 600,
		},
		Filter: FilterConfig{MinLength: 3},
		Log:    LogConfig{File: ".tendril/tendril.log", Level: "info"},
		Palette: []string{
			"#2e8b57", "#b8860b", "#4682b4", "#8b3a62",
		},
	}
}

// Load reads the configuration at path, fills gaps with defaults, and
// applies environment overrides. path may be empty, in which case the file
// is discovered by walking up from the working directory; a missing file
// yields the defaults rooted at the working directory.
func Load(path string) (Config, error) {
	if env := os.Getenv("TENDRIL_CONFIG"); path == "" && env != "" {
		path = env
	}
	if path == "" {
		found, err := discover()
		if err != nil {
			return Config{}, err
		}
		path = found
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
		cfg.Dir = filepath.Dir(path)
	}
	if cfg.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, err
		}
		cfg.Dir = wd
	}

	applyEnv(&cfg)
	cfg.resolvePaths()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// discover walks up from the working directory looking for FileName.
// Returns "" when no config file exists anywhere up the tree.
func discover() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TENDRIL_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TENDRIL_GENERATOR"); v != "" {
		cfg.Generator.Binary = v
	}
	if v := os.Getenv("TENDRIL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
}

// resolvePaths anchors relative paths at the project directory.
func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.ContentDir, &c.StateDir, &c.DBPath, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.Dir, *p)
		}
	}
}

func (c *Config) validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RootSlug == "" {
		return fmt.Errorf("root_slug must not be empty")
	}
	if c.Generator.Binary == "" {
		return fmt.Errorf("generator.binary must not be empty")
	}
	return nil
}

// Selector builds the task-selection parameters from the config.
func (c *Config) Selector() selector.Config {
	return selector.Config{
		MaxDepth:   c.MaxDepth,
		RootSlug:   c.RootSlug,
		ContentDir: c.ContentDir,
		Seeds:      c.Seeds,
		Palette:    c.Palette,
	}
}

const initialYAML = `# tendril project configuration
content_dir: pages
state_dir: .tendril
db_path: .tendril/tendril.db
root_slug: index

max_depth: 3
workers: 2
max_loops: 10
scan_every: 5
retention_days: 7

generator:
  binary: claude
  timeout_seconds: 600

filter:
  min_length: 3

publish:
  enabled: false
  push: false

log:
  file: .tendril/tendril.log
  level: info

seeds:
  - text: an unexpected connection between two everyday things
  - text: a place that only exists at a particular time of day

palette:
  - "#2e8b57"
  - "#b8860b"
  - "#4682b4"
  - "#8b3a62"
`

// Write creates FileName in dir with the starter configuration. Fails if
// the file already exists.
func Write(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(initialYAML), 0o644); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
