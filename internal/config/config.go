// Package config loads dq settings. Precedence, highest first: flags,
// DQ_* environment variables (also read from .env), dq.yaml, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/jadesonbruno/dataquality/dataset"
	"github.com/jadesonbruno/dataquality/internal/logger"
	"github.com/jadesonbruno/dataquality/report"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "dq.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "dq.yml"

// EnvPrefix prefixes every environment override: DQ_SOURCE_PATH -> source.path.
const EnvPrefix = "DQ_"

const (
	DefaultSuitesDir     = "suites"
	DefaultDocsDir       = "uncommitted/data_docs/local_site"
	DefaultRunNamePrefix = "run"
	DefaultServerAddr    = ":8080"
)

// Config is the resolved dq configuration.
type Config struct {
	Source        dataset.Config  `koanf:"source"`
	SuitesDir     string          `koanf:"suites_dir"`
	Suite         string          `koanf:"suite"`
	RunNamePrefix string          `koanf:"run_name_prefix"`
	Docs          DocsConfig      `koanf:"docs"`
	S3            report.S3Config `koanf:"s3"`
	Postgres      PostgresConfig  `koanf:"postgres"`
	Metrics       MetricsConfig   `koanf:"metrics"`
	Server        ServerConfig    `koanf:"server"`
	Log           logger.Config   `koanf:"log"`

	// Sources are the named sources the HTTP API may validate.
	Sources map[string]dataset.Config `koanf:"sources"`

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

type DocsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type PostgresConfig struct {
	// DSN enables the database suite store and run history.
	DSN string `koanf:"dsn"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Load reads configuration from cfgFile (or dq.yaml in the working
// directory), the environment and the explicitly set flags. Flag names
// map to keys by replacing "-" with "_" and, for nested keys, "." stays:
// --source.path or --log-level both work.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"suites_dir":      DefaultSuitesDir,
		"run_name_prefix": DefaultRunNamePrefix,
		"docs.enabled":    true,
		"docs.dir":        DefaultDocsDir,
		"server.addr":     DefaultServerAddr,
		"log.level":       "info",
		"log.format":      "text",
		"log.sample_rate": 1,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFile := findConfigFile(cfgFile)
	if cfgFile != "" && configFile == "" {
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		// Paths from the file and the defaults are relative to the file;
		// env and flag paths below stay relative to the working directory.
		if err := resolveFilePaths(k, filepath.Dir(configFile)); err != nil {
			return nil, err
		}
	}

	// 3. .env next to the config file, without overriding the real environment
	if err := loadDotEnv(configFile); err != nil {
		return nil, err
	}

	// 4. Environment: DQ_S3_BUCKET -> s3.bucket, DQ_SUITES_DIR -> suites_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = configFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.RunNamePrefix == "" {
		errs = append(errs, errors.New("run_name_prefix must not be empty"))
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, errors.New("s3.region is required when s3.bucket is set"))
	}
	if c.Docs.Enabled && c.Docs.Dir == "" {
		errs = append(errs, errors.New("docs.dir is required when docs are enabled"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// envKey maps DQ_SOURCE_PATH to source.path. The first underscore after a
// known section separates the section from the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"source", "docs", "s3", "postgres", "metrics", "server", "log"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// flagKey maps a flag name to its config key: --log-level -> log.level,
// --suites-dir -> suites_dir, --addr -> server.addr.
func flagKey(name string) string {
	if name == "addr" {
		return "server.addr"
	}
	if strings.Contains(name, ".") {
		return strings.ReplaceAll(name, "-", "_")
	}
	return envKey(EnvPrefix + strings.ReplaceAll(name, "-", "_"))
}

// findConfigFile finds the config file to use.
// Priority: explicit path > dq.yaml > dq.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return ""
		}
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func loadDotEnv(configFile string) error {
	path := ".env"
	if configFile != "" {
		path = filepath.Join(filepath.Dir(configFile), ".env")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// resolveFilePaths rewrites the path keys loaded so far relative to baseDir.
func resolveFilePaths(k *koanf.Koanf, baseDir string) error {
	keys := []string{"suites_dir", "docs.dir", "source.path"}
	for _, name := range k.MapKeys("sources") {
		keys = append(keys, "sources."+name+".path")
	}
	for _, key := range keys {
		path := k.String(key)
		if path == "" || path == ":memory:" {
			continue
		}
		if err := k.Set(key, resolvePathRelativeTo(path, baseDir)); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", key, err)
		}
	}
	return nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
