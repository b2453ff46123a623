// Package config loads vibe-pgx settings from flags, environment and the
// config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/inodb/vibe-pgx/internal/genotype"
	"github.com/inodb/vibe-pgx/internal/output"
	"github.com/inodb/vibe-pgx/internal/query"
)

// EnvPrefix prefixes environment overrides, e.g. VIBE_PGX_PANEL.
const EnvPrefix = "VIBE_PGX"

// FileName is the config file looked up in the home directory.
const FileName = ".vibe-pgx.yaml"

// Output formats.
const (
	FormatXLSX = "xlsx"
	FormatTSV  = "tsv"
)

// Keys shared by flags, environment and the config file.
const (
	KeyPanel        = "panel"
	KeyOutput       = "output"
	KeyFormat       = "format"
	KeySuffix       = "suffix"
	KeyBackend      = "backend"
	KeyBcftools     = "bcftools"
	KeySample       = "sample"
	KeyDepthField   = "depth_field"
	KeyWorkers      = "workers"
	KeyTimeout      = "timeout"
	KeyChromAliases = "chrom_aliases"
	KeyFailFast     = "fail_fast"
	KeyFontFamily   = "font.family"
	KeyFontSize     = "font.size"
)

// Config is the explicit configuration of an annotation run.
type Config struct {
	Panel        string        `mapstructure:"panel"`
	Output       string        `mapstructure:"output"`
	Format       string        `mapstructure:"format"`
	Suffix       string        `mapstructure:"suffix"`
	Backend      string        `mapstructure:"backend"`
	Bcftools     string        `mapstructure:"bcftools"`
	Sample       string        `mapstructure:"sample"`
	DepthField   string        `mapstructure:"depth_field"`
	Workers      int           `mapstructure:"workers"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ChromAliases bool          `mapstructure:"chrom_aliases"`
	FailFast     bool          `mapstructure:"fail_fast"`
	Font         Font          `mapstructure:"font"`
}

// Font configures the workbook font.
type Font struct {
	Family string  `mapstructure:"family"`
	Size   float64 `mapstructure:"size"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// Empty defaults make the keys visible to Unmarshal for env overrides.
	v.SetDefault(KeyPanel, "")
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeySample, "")
	v.SetDefault(KeyFormat, FormatXLSX)
	v.SetDefault(KeySuffix, output.DefaultSuffix)
	v.SetDefault(KeyBackend, query.BackendAuto)
	v.SetDefault(KeyBcftools, query.DefaultBcftools)
	v.SetDefault(KeyDepthField, genotype.DefaultDepthField)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyChromAliases, true)
	v.SetDefault(KeyFailFast, false)
	v.SetDefault(KeyFontFamily, output.DefaultFontFamily)
	v.SetDefault(KeyFontSize, output.DefaultFontSize)
}

// Init prepares v: defaults, environment overrides and the config file.
// An explicit cfgFile must exist; the default ~/.vibe-pgx.yaml is optional.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	path, err := DefaultPath()
	if err != nil {
		// No home directory; run on defaults.
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns ~/.vibe-pgx.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	switch c.Format {
	case FormatXLSX, FormatTSV:
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid format %q: must be %s or %s", c.Format, FormatXLSX, FormatTSV))
	}
	switch c.Backend {
	case query.BackendAuto, query.BackendTabix, query.BackendBcftools, query.BackendMemory, query.BackendDuckDB:
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid backend %q", c.Backend))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("invalid workers %d: must not be negative", c.Workers))
	}
	if c.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("invalid timeout %s: must not be negative", c.Timeout))
	}
	if c.DepthField == "" {
		errs = multierr.Append(errs, errors.New("depth_field must not be empty"))
	}
	if c.Font.Size < 0 {
		errs = multierr.Append(errs, fmt.Errorf("invalid font size %g", c.Font.Size))
	}
	return errs
}
