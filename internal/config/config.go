// Package config loads settings for the httpmsg command: a YAML file,
// then HTTPMSG_* environment variables, then command-line flags.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the effective configuration.
type Config struct {
	Listen    string `yaml:"listen"`
	UploadDir string `yaml:"upload_dir"`
	// MaxMemory and MaxFileSize accept sizes like "32MiB" in YAML.
	MaxMemory      Size   `yaml:"max_memory"`
	MaxFileSize    Size   `yaml:"max_file_size"`
	MaxHeaderBytes int    `yaml:"max_header_bytes"`
	LogLevel       string `yaml:"log_level"`
	Metrics        bool   `yaml:"metrics"`
	MetricsPath    string `yaml:"metrics_path"`
}

// Size is a byte count that unmarshals from "10MB"-style strings as well as
// plain integers.
type Size int64

func (s *Size) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseSize(n.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Size) MarshalYAML() (interface{}, error) {
	return humanize.IBytes(uint64(s)), nil
}

func (s Size) String() string { return humanize.IBytes(uint64(s)) }

// ParseSize accepts a plain byte count or a humanized size.
func ParseSize(v string) (Size, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n < 0 {
			return 0, errors.Errorf("config: negative size %q", v)
		}
		return Size(n), nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, errors.Wrapf(err, "config: size %q", v)
	}
	return Size(n), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:         ":8080",
		MaxMemory:      32 << 20,
		MaxHeaderBytes: 8 << 10,
		LogLevel:       "info",
		MetricsPath:    "/metrics",
	}
}

// Load reads the YAML file at path over Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files into the process
// environment without overriding what is already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ResolvePath picks the config path: the flag when set, else HTTPMSG_CONFIG.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv("HTTPMSG_CONFIG")
}

// LoadEnvOverrides applies HTTPMSG_* variables to cfg and returns the names
// of the variables that were used.
func LoadEnvOverrides(cfg *Config) ([]string, error) {
	var used []string
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
			used = append(used, name)
		}
	}
	str("HTTPMSG_LISTEN", &cfg.Listen)
	str("HTTPMSG_UPLOAD_DIR", &cfg.UploadDir)
	str("HTTPMSG_LOG_LEVEL", &cfg.LogLevel)
	str("HTTPMSG_METRICS_PATH", &cfg.MetricsPath)

	for name, dst := range map[string]*Size{
		"HTTPMSG_MAX_MEMORY":    &cfg.MaxMemory,
		"HTTPMSG_MAX_FILE_SIZE": &cfg.MaxFileSize,
	} {
		if v := os.Getenv(name); v != "" {
			n, err := ParseSize(v)
			if err != nil {
				return used, errors.Wrap(err, name)
			}
			*dst = n
			used = append(used, name)
		}
	}
	if v := os.Getenv("HTTPMSG_MAX_HEADER_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return used, errors.Errorf("HTTPMSG_MAX_HEADER_BYTES: invalid value %q", v)
		}
		cfg.MaxHeaderBytes = n
		used = append(used, "HTTPMSG_MAX_HEADER_BYTES")
	}
	if v := os.Getenv("HTTPMSG_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return used, errors.Wrap(err, "HTTPMSG_METRICS")
		}
		cfg.Metrics = b
		used = append(used, "HTTPMSG_METRICS")
	}
	return used, nil
}

// LoadEffective combines Load and LoadEnvOverrides.
func LoadEffective(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if _, err := LoadEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the values Load and the overrides produced.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is empty")
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.New("config: max_header_bytes must be positive")
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return errors.Errorf("config: metrics_path %q must start with /", c.MetricsPath)
	}
	return nil
}
