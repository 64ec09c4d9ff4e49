// Package config loads the server configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/logging"
	"github.com/ironsheep/traffic-sign-mcp/internal/meaning"
	"github.com/ironsheep/traffic-sign-mcp/internal/override"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig    = "SIGN_MCP_CONFIG"
	EnvThreshold = "SIGN_MCP_THRESHOLD"
	EnvModel     = "SIGN_MCP_MODEL"
	EnvORTLib    = "SIGN_MCP_ORT_LIB"
	EnvOCR       = "SIGN_MCP_OCR"
)

// Config holds every recognised option.
type Config struct {
	// ConfidenceThreshold drops detections scoring below it.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	ManualOverride OverrideConfig `yaml:"manual_override"`

	// LabelCatalog lists the labels an operator may select. Empty means the
	// detector's class names.
	LabelCatalog []string `yaml:"label_catalog,omitempty"`

	// MeaningRules replaces the built-in rule table when set.
	MeaningRules []meaning.RuleSpec `yaml:"meaning_rules,omitempty"`

	// ClassNames is the detector's class list in class-id order. Empty means
	// the bundled traffic-sign classes.
	ClassNames []string `yaml:"class_names,omitempty"`

	Detector DetectorConfig `yaml:"detector"`

	// RequestTimeout bounds one report request, e.g. "30s".
	RequestTimeout string `yaml:"request_timeout"`

	// ImageCacheSize is the number of decoded images kept in memory.
	ImageCacheSize int `yaml:"image_cache_size"`

	OCR OCRConfig `yaml:"ocr"`
	Log LogConfig `yaml:"log"`
}

// OverrideConfig is the initial manual override state.
type OverrideConfig struct {
	Enabled bool   `yaml:"enabled"`
	Label   string `yaml:"label,omitempty"`

	// FixedConfidence is reported on manual records. Unset means
	// override.DefaultFixedConfidence; 0 is a valid setting.
	FixedConfidence *float64 `yaml:"fixed_confidence"`
}

// Confidence returns FixedConfidence or the default when it is unset.
func (o OverrideConfig) Confidence() float64 {
	if o.FixedConfidence == nil {
		return override.DefaultFixedConfidence
	}
	return *o.FixedConfidence
}

// DetectorConfig configures the ONNX detector backend.
type DetectorConfig struct {
	ModelPath         string  `yaml:"model_path"`
	SharedLibraryPath string  `yaml:"shared_library_path,omitempty"`
	InputSize         int     `yaml:"input_size"`
	IoUThreshold      float64 `yaml:"iou_threshold"`
	MinScore          float64 `yaml:"min_score"`
}

// OCRConfig configures sign-text reading.
type OCRConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Language     string `yaml:"language"`
	TessdataPath string `yaml:"tessdata_path,omitempty"`
	Whitelist    string `yaml:"whitelist,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ConfidenceThreshold: 0.25,
		ManualOverride: OverrideConfig{
			FixedConfidence: ptr(override.DefaultFixedConfidence),
		},
		Detector: DetectorConfig{
			ModelPath:    "models/best.onnx",
			InputSize:    640,
			IoUThreshold: 0.45,
			MinScore:     0.05,
		},
		RequestTimeout: "30s",
		ImageCacheSize: 32,
		OCR: OCRConfig{
			Language: "eng",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file yields the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyDefaults fills zero values left by a partial YAML file.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.ManualOverride.FixedConfidence == nil {
		c.ManualOverride.FixedConfidence = d.ManualOverride.FixedConfidence
	}
	if c.Detector.ModelPath == "" {
		c.Detector.ModelPath = d.Detector.ModelPath
	}
	if c.Detector.InputSize == 0 {
		c.Detector.InputSize = d.Detector.InputSize
	}
	if c.Detector.IoUThreshold == 0 {
		c.Detector.IoUThreshold = d.Detector.IoUThreshold
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ImageCacheSize == 0 {
		c.ImageCacheSize = d.ImageCacheSize
	}
	if c.OCR.Language == "" {
		c.OCR.Language = d.OCR.Language
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// ApplyEnv applies environment overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(logging.EnvLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvThreshold); ok && v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvThreshold, v, err)
		}
		c.ConfidenceThreshold = t
	}
	if v, ok := lookup(EnvModel); ok && v != "" {
		c.Detector.ModelPath = v
	}
	if v, ok := lookup(EnvORTLib); ok && v != "" {
		c.Detector.SharedLibraryPath = v
	}
	if v, ok := lookup(EnvOCR); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvOCR, v, err)
		}
		c.OCR.Enabled = enabled
	}
	return nil
}

// Validate reports every invalid option in one error.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !detection.ValidConfidence(c.ConfidenceThreshold) {
		add("confidence_threshold %v outside [0,1]", c.ConfidenceThreshold)
	}
	if fc := c.ManualOverride.Confidence(); !detection.ValidConfidence(fc) {
		add("manual_override.fixed_confidence %v outside [0,1]", fc)
	}
	if c.ManualOverride.Enabled {
		if strings.TrimSpace(c.ManualOverride.Label) == "" {
			add("manual_override.label is required when the override is enabled")
		} else if _, ok := override.NewCatalog(c.Catalog()).Lookup(c.ManualOverride.Label); !ok {
			add("manual_override.label %q is not in the label catalog", c.ManualOverride.Label)
		}
	}
	for i, name := range c.ClassNames {
		if strings.TrimSpace(name) == "" {
			add("class_names[%d] is empty", i)
		}
	}
	if len(c.MeaningRules) > 0 {
		if _, err := meaning.Compile(c.MeaningRules); err != nil {
			add("meaning_rules: %w", err)
		}
	}
	if c.Detector.InputSize <= 0 || c.Detector.InputSize%32 != 0 {
		add("detector.input_size %d must be a positive multiple of 32", c.Detector.InputSize)
	}
	if c.Detector.IoUThreshold <= 0 || c.Detector.IoUThreshold > 1 {
		add("detector.iou_threshold %v outside (0,1]", c.Detector.IoUThreshold)
	}
	if !detection.ValidConfidence(c.Detector.MinScore) {
		add("detector.min_score %v outside [0,1]", c.Detector.MinScore)
	}
	if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
		add("request_timeout %q is not a positive duration", c.RequestTimeout)
	}
	if c.ImageCacheSize < 0 {
		add("image_cache_size %d is negative", c.ImageCacheSize)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "text", "json":
	default:
		add("log.format %q must be console or json", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

// Timeout returns RequestTimeout as a duration, or 30s when unparsable.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ClassIndex returns the detector's class index.
func (c *Config) ClassIndex() detection.ClassIndex {
	if len(c.ClassNames) == 0 {
		return detection.TrafficSigns
	}
	return detection.SliceIndex(c.ClassNames)
}

// Catalog returns the override-selectable labels.
func (c *Config) Catalog() []string {
	if len(c.LabelCatalog) > 0 {
		return c.LabelCatalog
	}
	return c.ClassIndex().Labels()
}

// Rules returns the meaning rule table in effect.
func (c *Config) Rules() (*meaning.Table, error) {
	if len(c.MeaningRules) == 0 {
		return meaning.Builtin(), nil
	}
	return meaning.Compile(c.MeaningRules)
}

func ptr[T any](v T) *T { return &v }
