package privsplit

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tool configuration. The zero value is not usable; start
// from DefaultConfig or LoadConfig.
type Config struct {
	// Patterns are the package patterns the loader resolves, in the syntax
	// accepted by the underlying build system (e.g. "./...").
	Patterns []string `yaml:"patterns"`

	// BuildTag is the build constraint carried by marker source files.
	// Generated counterparts use the negated constraint.
	BuildTag string `yaml:"build_tag"`

	// Suffix is appended to the base name of generated files, before the
	// file extension.
	Suffix string `yaml:"suffix"`

	// Workers bounds the number of files rewritten concurrently.
	// Zero means one worker per CPU.
	Workers int `yaml:"workers"`

	// Cache enables the on-disk descriptor cache, keyed by source content
	// hashes, so unchanged files are not re-parsed or re-emitted.
	Cache bool `yaml:"cache"`

	// CacheDir is the cache location. Empty means a ".privsplit" directory
	// next to the first resolved package.
	CacheDir string `yaml:"cache_dir"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Patterns: []string{"./..."},
		BuildTag: DefaultBuildTag,
		Suffix:   DefaultSuffix,
	}
}

// LoadConfig reads and validates a YAML configuration file. Fields absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("privsplit: read config: %w", err)
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("privsplit: parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports the first invalid option.
func (c *Config) Validate() error {
	if len(c.Patterns) == 0 {
		return NewConfigError("Patterns", nil, "at least one package pattern is required")
	}
	if c.BuildTag == "" {
		return NewConfigError("BuildTag", nil, "cannot be empty")
	}
	if strings.ContainsAny(c.BuildTag, " !&|()") {
		return NewConfigError("BuildTag", c.BuildTag, "must be a single constraint tag")
	}
	if c.Suffix == "" {
		return NewConfigError("Suffix", nil, "cannot be empty: generated files must not overwrite their sources")
	}
	if strings.ContainsAny(c.Suffix, "/\\") {
		return NewConfigError("Suffix", c.Suffix, "must not contain path separators")
	}
	if c.Workers < 0 {
		return NewConfigError("Workers", c.Workers, "cannot be negative")
	}
	return nil
}
