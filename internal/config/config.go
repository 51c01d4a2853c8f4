package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/furnicon/furnicon/internal/variation"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration. API keys are read from the environment only.
type Config struct {
	Port string `yaml:"port"`

	Vision     Vision     `yaml:"vision"`
	Generation Generation `yaml:"generation"`

	DefaultPrice float64 `yaml:"default_price"`
	// ImageURLHosts limits which hosts image_url uploads may fetch from; empty allows any
	ImageURLHosts []string `yaml:"image_url_hosts"`
}

type Vision struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxEdge     int           `yaml:"max_edge"`
	JPEGQuality int           `yaml:"jpeg_quality"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Generation struct {
	ImageModel  string           `yaml:"image_model"`
	TextModel   string           `yaml:"text_model"`
	AspectRatio string           `yaml:"aspect_ratio"`
	Pacing      time.Duration    `yaml:"pacing"`
	Parallelism int              `yaml:"parallelism"`
	CallTimeout time.Duration    `yaml:"call_timeout"`
	Views       []variation.View `yaml:"views"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port: "8888",
		Vision: Vision{
			Provider:    "gemini",
			Temperature: 0.1,
			MaxEdge:     1024,
			JPEGQuality: 85,
			Timeout:     45 * time.Second,
		},
		Generation: Generation{
			ImageModel:  "gemini-2.5-flash-image",
			TextModel:   "imagen-4.0-generate-001",
			AspectRatio: "1:1",
			Pacing:      time.Second,
			Parallelism: 1,
			CallTimeout: 45 * time.Second,
		},
		DefaultPrice: 199.99,
	}
}

// Load builds the configuration from defaults, then the YAML file at path (optional),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.Vision.Provider, "VISION_PROVIDER")
	setString(&c.Vision.Model, "VISION_MODEL")
	setString(&c.Generation.ImageModel, "IMAGE_MODEL")
	setString(&c.Generation.TextModel, "IMAGEN_MODEL")
	if v := os.Getenv("IMAGE_URL_HOSTS"); v != "" {
		c.ImageURLHosts = nil
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				c.ImageURLHosts = append(c.ImageURLHosts, h)
			}
		}
	}

	if err := setDuration(&c.Generation.Pacing, "GENERATION_PACING"); err != nil {
		return err
	}
	if v := os.Getenv("CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CALL_TIMEOUT %q: %w", v, err)
		}
		c.Vision.Timeout = d
		c.Generation.CallTimeout = d
	}
	if v := os.Getenv("GENERATION_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GENERATION_PARALLELISM %q: %w", v, err)
		}
		c.Generation.Parallelism = n
	}
	return nil
}

// Validate rejects values no component can work with
func (c Config) Validate() error {
	var errs []error
	if c.Vision.MaxEdge < 64 {
		errs = append(errs, fmt.Errorf("vision.max_edge must be at least 64, got %d", c.Vision.MaxEdge))
	}
	if c.Vision.JPEGQuality < 1 || c.Vision.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("vision.jpeg_quality must be between 1 and 100, got %d", c.Vision.JPEGQuality))
	}
	if c.Generation.Pacing < 0 {
		errs = append(errs, fmt.Errorf("generation.pacing must not be negative"))
	}
	if c.Generation.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("generation.parallelism must be at least 1, got %d", c.Generation.Parallelism))
	}
	if c.DefaultPrice < 0 {
		errs = append(errs, fmt.Errorf("default_price must not be negative"))
	}
	for i, v := range c.Generation.Views {
		if v.Name == "" || v.Instruction == "" {
			errs = append(errs, fmt.Errorf("generation.views[%d] needs a name and an instruction", i))
		}
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
