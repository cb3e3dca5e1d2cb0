// Package config provides configuration management for the Retouch editor.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Duration is a time.Duration that reads and writes as a Go duration string ("600ms").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler. Plain numbers are taken as milliseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Config struct to hold all configuration data
type Config struct {
	ListenAddr        string   `json:"listen_addr"`
	StepDelay         Duration `json:"step_delay"`
	DoneDisplayDelay  Duration `json:"done_display_delay"`
	DefaultQuality    int      `json:"default_quality"`
	UpscaleFactor     float64  `json:"upscale_factor"`
	Resampler         string   `json:"resampler"`
	MaxUploadMB       int      `json:"max_upload_mb"` // shown to the user, never enforced
	RequestsPerSecond float64  `json:"requests_per_second"`
	RequestBurst      int      `json:"request_burst"`
}

// Resamplers lists the accepted values of Config.Resampler.
var Resamplers = []string{"nearest", "linear", "catmullrom", "lanczos"}

var (
	instance *Config
	once     sync.Once
)

// GetConfig returns the singleton instance of Config.
func GetConfig() *Config {
	once.Do(func() {
		instance = Default()
		if err := instance.LoadFromFile(GetFilename()); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Error loading config, using defaults: %v", err)
			}
			instance = Default()
		}
	})
	return instance
}

// Default returns a Config populated with default values.
func Default() *Config {
	c := &Config{}
	c.setDefaultValues()
	return c
}

// GetPath returns the path to the user's config directory
func GetPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Error getting user home directory: %v", err)
	}
	return filepath.Join(homeDir, "."+strings.ToLower(AppName))
}

// GetFilename returns the path to the user's config file
func GetFilename() string {
	return filepath.Join(GetPath(), "config.json")
}

// LoadFromFile loads configuration from the specified file. Fields missing from
// the file keep their current values.
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decoding %s: %w", filename, err)
	}

	return c.Validate()
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.StepDelay < 0 || c.DoneDisplayDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.DefaultQuality < 10 || c.DefaultQuality > 100 {
		return fmt.Errorf("default_quality %d out of range [10,100]", c.DefaultQuality)
	}
	if c.UpscaleFactor <= 1 {
		return fmt.Errorf("upscale_factor must be greater than 1, got %v", c.UpscaleFactor)
	}
	valid := false
	for _, r := range Resamplers {
		if c.Resampler == r {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown resampler %q", c.Resampler)
	}
	if c.RequestsPerSecond <= 0 || c.RequestBurst <= 0 {
		return fmt.Errorf("requests_per_second and request_burst must be positive")
	}
	return nil
}

// setDefaultValues sets default values for the configuration
func (c *Config) setDefaultValues() {
	c.ListenAddr = "127.0.0.1:49460"
	c.StepDelay = Duration(600 * time.Millisecond)
	c.DoneDisplayDelay = Duration(1500 * time.Millisecond)
	c.DefaultQuality = 80
	c.UpscaleFactor = 2
	c.Resampler = "linear"
	c.MaxUploadMB = 10
	c.RequestsPerSecond = 20
	c.RequestBurst = 40
}

// SaveTo writes the configuration as indented JSON, creating the directory if needed.
func (c *Config) SaveTo(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config data: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Save saves the current configuration to the user's config file
func (c *Config) Save() error {
	return c.SaveTo(GetFilename())
}
