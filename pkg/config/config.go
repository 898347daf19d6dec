/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/slotdb/pkg/logging"
	"github.com/ssargent/slotdb/pkg/schema"
)

// Config represents the slotdb configuration
type Config struct {
	DataFile string   `yaml:"data_file"`
	Port     int      `yaml:"port"`
	Bind     string   `yaml:"bind"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
	Formats  Formats  `yaml:"formats"`
	Fields   []Field  `yaml:"fields,omitempty"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir,omitempty"`
}

// Formats controls how dates and currency are read and written
type Formats struct {
	DateLayout     string `yaml:"date_layout"`
	CurrencySymbol string `yaml:"currency_symbol"`
}

// Field describes one table field. Width is only needed to create a new
// table file; an existing file carries its own widths. Unset flags are true.
type Field struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Width       int    `yaml:"width,omitempty"`
	Searchable  *bool  `yaml:"searchable,omitempty"`
	Displayable *bool  `yaml:"displayable,omitempty"`
	Modifiable  *bool  `yaml:"modifiable,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	defaults := schema.DefaultFormats()
	return &Config{
		DataFile: "./data/hotels.db",
		Port:     8080,
		Bind:     "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: logging.FormatText,
		},
		Formats: Formats{
			DateLayout:     defaults.DateLayout,
			CurrencySymbol: defaults.CurrencySymbol,
		},
		Fields: []Field{
			{Name: "name", Type: "string", Width: 64},
			{Name: "location", Type: "string", Width: 64},
			{Name: "size", Type: "integer", Width: 4},
			{Name: "smoking", Type: "boolean", Width: 1},
			{Name: "rate", Type: "currency", Width: 8},
			{Name: "date", Type: "date", Width: 10, Searchable: boolPtr(false)},
			{Name: "owner", Type: "string", Width: 8, Searchable: boolPtr(false), Displayable: boolPtr(false)},
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataFile string) (*Config, error) {
	config := DefaultConfig()
	if dataFile != "" {
		config.DataFile = dataFile
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./slotdb.yaml"
	}

	// For Linux/macOS, use ~/.config/slotdb/config.yaml
	configDir := filepath.Join(homeDir, ".config", "slotdb")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// SchemaOptions converts the formats and field settings into the options
// applied when a table file's header is parsed.
func (c *Config) SchemaOptions() (schema.Options, error) {
	opts := schema.DefaultOptions()
	if c.Formats.DateLayout != "" {
		opts.Formats.DateLayout = c.Formats.DateLayout
	}
	if c.Formats.CurrencySymbol != "" {
		opts.Formats.CurrencySymbol = c.Formats.CurrencySymbol
	}

	for _, f := range c.Fields {
		t, err := schema.ParseFieldType(f.Type)
		if err != nil {
			return schema.Options{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		opts.Fields = append(opts.Fields, schema.FieldOptions{
			Name:        f.Name,
			Type:        t,
			Searchable:  flag(f.Searchable),
			Displayable: flag(f.Displayable),
			Modifiable:  flag(f.Modifiable),
		})
	}
	return opts, nil
}

// Columns returns the header columns for creating a new table file.
func (c *Config) Columns() ([]schema.Column, error) {
	if len(c.Fields) == 0 {
		return nil, fmt.Errorf("no fields configured")
	}
	columns := make([]schema.Column, len(c.Fields))
	for i, f := range c.Fields {
		if f.Width <= 0 {
			return nil, fmt.Errorf("field %q needs a positive width", f.Name)
		}
		columns[i] = schema.Column{Name: f.Name, Width: f.Width}
	}
	return columns, nil
}

func flag(b *bool) bool {
	return b == nil || *b
}

func boolPtr(b bool) *bool {
	return &b
}
