package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"serverlist/pkg/store"
)

const (
	// FileName is looked up in the working directory when no path is given.
	FileName = "serverlist.yaml"

	envPrefix = "SERVERLIST_"

	defaultListen          = ":8090"
	defaultGameDir         = ".minecraft"
	defaultProbeTimeout    = 15 * time.Second
	defaultProbeRate       = 8
	defaultProbeBurst      = 8
	defaultProtocolVersion = 760
	defaultLogLevel        = "info"
)

// Config holds serverlist settings.
type Config struct {
	Listen          string        `yaml:"listen"`
	GameDir         string        `yaml:"game_dir"`
	HistoryDB       string        `yaml:"history_db"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	ProbeRate       float64       `yaml:"probe_rate"`
	ProbeBurst      int           `yaml:"probe_burst"`
	ProtocolVersion int           `yaml:"protocol_version"`
	LogLevel        string        `yaml:"log_level"`
	LogJSON         bool          `yaml:"log_json"`
}

// fileConfig uses pointers so that an explicit zero in the file still
// overrides the default.
type fileConfig struct {
	Listen          *string        `yaml:"listen"`
	GameDir         *string        `yaml:"game_dir"`
	HistoryDB       *string        `yaml:"history_db"`
	ProbeTimeout    *time.Duration `yaml:"probe_timeout"`
	ProbeRate       *float64       `yaml:"probe_rate"`
	ProbeBurst      *int           `yaml:"probe_burst"`
	ProtocolVersion *int           `yaml:"protocol_version"`
	LogLevel        *string        `yaml:"log_level"`
	LogJSON         *bool          `yaml:"log_json"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Listen:          defaultListen,
		GameDir:         defaultGameDir,
		ProbeTimeout:    defaultProbeTimeout,
		ProbeRate:       defaultProbeRate,
		ProbeBurst:      defaultProbeBurst,
		ProtocolVersion: defaultProtocolVersion,
		LogLevel:        defaultLogLevel,
	}
}

// Load builds the configuration with the following precedence (highest first):
// 1. SERVERLIST_* environment variables
// 2. The YAML file at path, or ./serverlist.yaml when path is empty
// 3. Built-in defaults
// An explicitly named file must exist; the implicit one is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	if err := loadFromFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DataPath returns the servers.dat location.
func (c *Config) DataPath() string {
	return filepath.Join(c.GameDir, store.DataFileName)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address must not be empty")
	}
	if c.GameDir == "" {
		return errors.New("game_dir must not be empty")
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("probe_timeout must not be negative, got %s", c.ProbeTimeout)
	}
	if c.ProbeBurst < 0 {
		return fmt.Errorf("probe_burst must not be negative, got %d", c.ProbeBurst)
	}
	if c.ProtocolVersion < 0 {
		return fmt.Errorf("protocol_version must not be negative, got %d", c.ProtocolVersion)
	}
	return nil
}

// loadFromFile merges a YAML file into cfg. Relative paths are resolved
// against the directory holding the file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fileCfg fileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)

	if fileCfg.Listen != nil {
		cfg.Listen = *fileCfg.Listen
	}
	if fileCfg.GameDir != nil {
		cfg.GameDir = resolvePath(*fileCfg.GameDir, baseDir)
	}
	if fileCfg.HistoryDB != nil {
		cfg.HistoryDB = resolvePath(*fileCfg.HistoryDB, baseDir)
	}
	if fileCfg.ProbeTimeout != nil {
		cfg.ProbeTimeout = *fileCfg.ProbeTimeout
	}
	if fileCfg.ProbeRate != nil {
		cfg.ProbeRate = *fileCfg.ProbeRate
	}
	if fileCfg.ProbeBurst != nil {
		cfg.ProbeBurst = *fileCfg.ProbeBurst
	}
	if fileCfg.ProtocolVersion != nil {
		cfg.ProtocolVersion = *fileCfg.ProtocolVersion
	}
	if fileCfg.LogLevel != nil {
		cfg.LogLevel = *fileCfg.LogLevel
	}
	if fileCfg.LogJSON != nil {
		cfg.LogJSON = *fileCfg.LogJSON
	}

	return nil
}

// resolvePath expands ~ and anchors relative paths at baseDir.
func resolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}

	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// applyEnv applies SERVERLIST_* environment variables to cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(envPrefix + "LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(envPrefix + "GAME_DIR"); v != "" {
		cfg.GameDir = v
	}
	if v := os.Getenv(envPrefix + "HISTORY_DB"); v != "" {
		cfg.HistoryDB = v
	}
	if v := os.Getenv(envPrefix + "PROBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPROBE_TIMEOUT: %w", envPrefix, err)
		}
		cfg.ProbeTimeout = d
	}
	if v := os.Getenv(envPrefix + "PROBE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sPROBE_RATE: %w", envPrefix, err)
		}
		cfg.ProbeRate = f
	}
	if v := os.Getenv(envPrefix + "PROBE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPROBE_BURST: %w", envPrefix, err)
		}
		cfg.ProbeBurst = n
	}
	if v := os.Getenv(envPrefix + "PROTOCOL_VERSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPROTOCOL_VERSION: %w", envPrefix, err)
		}
		cfg.ProtocolVersion = n
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "LOG_JSON"); v != "" {
		cfg.LogJSON = v == "true" || v == "1" || v == "yes"
	}
	return nil
}
