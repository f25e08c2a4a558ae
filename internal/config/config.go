// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nrcms/internal/assets"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file looked up in the source
// directory.
const FileName = "site.yaml"

// EnvPrefix prefixes every environment override, e.g. NRCMS_INLINE_LIMIT.
const EnvPrefix = "NRCMS"

// Config holds the settings of one generation run. Values come from
// Default, then site.yaml, then the environment, then command line flags.
type Config struct {
	Title         string   `yaml:"title"`
	SourceDir     string   `yaml:"source_dir" split_words:"true"`
	GenerationDir string   `yaml:"generation_dir" split_words:"true"`
	LogLevel      string   `yaml:"log_level" split_words:"true"`
	Unsafe        bool     `yaml:"unsafe"`
	Markdown      bool     `yaml:"markdown"`
	InlineLimit   int      `yaml:"inline_limit" split_words:"true"`
	ImageSize     int      `yaml:"image_size" split_words:"true"`
	MaxDepth      int      `yaml:"max_depth" split_words:"true"`
	BlogPattern   string   `yaml:"blog_pattern" split_words:"true"`
	Timezone      string   `yaml:"timezone"`
	Ignore        []string `yaml:"ignore"`
	Port          int      `yaml:"port"`
}

func Default() Config {
	return Config{
		GenerationDir: "gen/",
		LogLevel:      "info",
		Markdown:      true,
		InlineLimit:   1000,
		ImageSize:     200,
		MaxDepth:      16,
		BlogPattern:   "*",
		Port:          1313,
	}
}

// Load reads site.yaml from sourceDir on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(fs afero.Fs, sourceDir string) (Config, error) {
	cfg := Default()
	path := filepath.Join(sourceDir, FileName)
	data, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("could not read config file at %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not read environment: %w", err)
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = sourceDir
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.SourceDir == "":
		return errors.New("source directory is required")
	case c.GenerationDir == "":
		return errors.New("generation directory is required")
	case filepath.Clean(c.SourceDir) == filepath.Clean(c.GenerationDir):
		return errors.New("generation directory must differ from the source directory")
	case c.InlineLimit < 0:
		return fmt.Errorf("inline_limit must not be negative, got %d", c.InlineLimit)
	case c.ImageSize <= 0:
		return fmt.Errorf("image_size must be positive, got %d", c.ImageSize)
	case c.ImageSize > assets.MaxSize:
		return fmt.Errorf("image_size must not exceed %d, got %d", assets.MaxSize, c.ImageSize)
	case c.MaxDepth <= 0:
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case !doublestar.ValidatePattern(c.BlogPattern):
		return fmt.Errorf("invalid blog_pattern %q", c.BlogPattern)
	}
	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	return nil
}
