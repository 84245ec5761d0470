package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddr      string           `toml:"listenAddr"`
	DefaultLanguage string           `toml:"defaultLanguage"`
	LogConfig       LogConfig        `toml:"logConfig"`
	Generation      GenerationConfig `toml:"generation"`
	Gallery         GalleryConfig    `toml:"gallery"`
	Styles          []StyleConfig    `toml:"styles"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type GenerationConfig struct {
	Endpoint              string `toml:"endpoint"`
	RequestTimeoutSeconds int    `toml:"requestTimeoutSeconds"`
	ImageWidth            int    `toml:"imageWidth"`
	ImageHeight           int    `toml:"imageHeight"`
	MaxVariations         int    `toml:"maxVariations"`
	DefaultVariations     int    `toml:"defaultVariations"`
}

type GalleryConfig struct {
	MaxRecords        int `toml:"maxRecords"`
	MaxDebugEntries   int `toml:"maxDebugEntries"`
	SessionTTLMinutes int `toml:"sessionTTLMinutes"`
}

// StyleConfig maps a style key to its descriptive phrase. When no styles are
// configured the compiled-in presets are used, so adding a style is a
// configuration change only.
type StyleConfig struct {
	Key    string `toml:"key"`
	Phrase string `toml:"phrase"`
}

// DefaultConfig returns the settings used when a field is absent from the
// config file.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		DefaultLanguage: "en",
		LogConfig: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Generation: GenerationConfig{
			Endpoint:              "https://image.pollinations.ai",
			RequestTimeoutSeconds: 120,
			ImageWidth:            200,
			ImageHeight:           200,
			MaxVariations:         6,
			DefaultVariations:     3,
		},
		Gallery: GalleryConfig{
			MaxRecords:        48,
			MaxDebugEntries:   200,
			SessionTTLMinutes: 120,
		},
	}
}

// LoadConfig reads a TOML config file over the defaults. Fields missing from
// the file keep their default values. The MEALGEN_LISTEN_ADDR and
// MEALGEN_ENDPOINT environment variables override their file counterparts.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if addr := os.Getenv("MEALGEN_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if endpoint := os.Getenv("MEALGEN_ENDPOINT"); endpoint != "" {
		cfg.Generation.Endpoint = endpoint
	}
	return cfg, nil
}

// RequestTimeout converts the configured timeout to a duration.
func (g GenerationConfig) RequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeoutSeconds) * time.Second
}

// SessionTTL converts the configured idle expiry to a duration.
func (g GalleryConfig) SessionTTL() time.Duration {
	return time.Duration(g.SessionTTLMinutes) * time.Minute
}

// StyleMap converts the configured styles into a lookup map. Empty when no
// styles are configured; the caller falls back to the built-in presets.
func (c *Config) StyleMap() map[string]string {
	if len(c.Styles) == 0 {
		return nil
	}
	styles := make(map[string]string, len(c.Styles))
	for _, s := range c.Styles {
		styles[s.Key] = s.Phrase
	}
	return styles
}

func ValidateURL(urlString string) bool {
	if urlString == "" {
		return false
	}
	u, err := url.Parse(urlString)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func ValidateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listenAddr is required")
	}
	if cfg.DefaultLanguage == "" {
		return fmt.Errorf("defaultLanguage is required")
	}
	if cfg.LogConfig.Level == "" {
		return fmt.Errorf("logConfig.level is required")
	}
	if cfg.LogConfig.Format == "" {
		return fmt.Errorf("logConfig.format is required")
	}
	if !ValidateURL(cfg.Generation.Endpoint) {
		return fmt.Errorf("generation.endpoint must be a valid http(s) URL")
	}
	if cfg.Generation.RequestTimeoutSeconds <= 0 || cfg.Generation.RequestTimeoutSeconds > 600 {
		return fmt.Errorf("generation.requestTimeoutSeconds must be between 1 and 600")
	}
	if cfg.Generation.ImageWidth <= 0 || cfg.Generation.ImageHeight <= 0 {
		return fmt.Errorf("generation image dimensions must be positive")
	}
	if cfg.Generation.MaxVariations < 1 || cfg.Generation.MaxVariations > 6 {
		return fmt.Errorf("generation.maxVariations must be between 1 and 6")
	}
	if cfg.Generation.DefaultVariations < 1 || cfg.Generation.DefaultVariations > cfg.Generation.MaxVariations {
		return fmt.Errorf("generation.defaultVariations must be between 1 and maxVariations")
	}
	if cfg.Gallery.MaxRecords < 0 {
		return fmt.Errorf("gallery.maxRecords must not be negative")
	}
	if cfg.Gallery.MaxDebugEntries < 0 {
		return fmt.Errorf("gallery.maxDebugEntries must not be negative")
	}
	if cfg.Gallery.SessionTTLMinutes < 0 {
		return fmt.Errorf("gallery.sessionTTLMinutes must not be negative")
	}
	for _, s := range cfg.Styles {
		if s.Key == "" || s.Phrase == "" {
			return fmt.Errorf("every configured style needs a key and a phrase")
		}
	}
	return nil
}

func PrintConfig(cfg *Config) {
	fmt.Println()
	fmt.Println("--------------------------------")
	fmt.Println("Config:")
	fmt.Printf("\tListenAddr: %s\n", cfg.ListenAddr)
	fmt.Printf("\tDefaultLanguage: %s\n", cfg.DefaultLanguage)
	fmt.Printf("\tLogConfig: %+v\n", cfg.LogConfig)
	fmt.Printf("\tGeneration: %+v\n", cfg.Generation)
	fmt.Printf("\tGallery: %+v\n", cfg.Gallery)
	fmt.Printf("\tStyles: %d configured (built-in presets when 0)\n", len(cfg.Styles))
	fmt.Println("--------------------------------")
	fmt.Println()
}
