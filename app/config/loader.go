package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of the backup configuration
type Loader struct {
	path string
}

// NewLoader creates a new configuration loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

type rawSource struct {
	Platform       string   `yaml:"platform"`
	Author         string   `yaml:"author"`
	DownloadAssets *bool    `yaml:"download_assets"`
	AssetTypes     []string `yaml:"asset_types"`
	DisplayName    string   `yaml:"display_name"`
}

type rawConfig struct {
	OutputDir string      `yaml:"output_dir"`
	Auth      Auth        `yaml:"auth"`
	Sources   []rawSource `yaml:"sources"`
	Hugo      Hugo        `yaml:"hugo"`
}

// Load reads and validates the YAML configuration file
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config := &Config{
		OutputDir: raw.OutputDir,
		Auth:      raw.Auth,
		Hugo:      raw.Hugo,
	}

	for _, src := range raw.Sources {
		source := Source{
			Platform:       src.Platform,
			Author:         src.Author,
			DownloadAssets: true,
			AssetTypes:     src.AssetTypes,
			DisplayName:    src.DisplayName,
		}
		if src.DownloadAssets != nil {
			source.DownloadAssets = *src.DownloadAssets
		}
		config.Sources = append(config.Sources, source)
	}

	l.setDefaults(config)

	if err := l.validate(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.path, err)
	}

	return config, nil
}

// setDefaults applies default values to configuration
func (l *Loader) setDefaults(config *Config) {
	if config.OutputDir == "" {
		config.OutputDir = "./backup"
	}
	if config.Hugo.BaseURL == "" {
		config.Hugo.BaseURL = "http://localhost:1313/"
	}
	if config.Hugo.Title == "" {
		config.Hugo.Title = "Article backup"
	}
	if config.Hugo.LanguageCode == "" {
		config.Hugo.LanguageCode = "ru"
	}
}

// validate validates the configuration
func (l *Loader) validate(config *Config) error {
	validPlatforms := map[string]bool{
		"sponsr": true,
		"boosty": true,
	}
	validAssetTypes := map[string]bool{
		"image":    true,
		"video":    true,
		"audio":    true,
		"document": true,
	}

	for i, source := range config.Sources {
		if !validPlatforms[source.Platform] {
			return fmt.Errorf("invalid platform at source %d: %s", i, source.Platform)
		}
		if source.Author == "" {
			return fmt.Errorf("author is required at source %d", i)
		}
		for _, at := range source.AssetTypes {
			if !validAssetTypes[at] {
				return fmt.Errorf("invalid asset type at source %d: %s", i, at)
			}
		}
	}

	return nil
}

// LoadAuthFile reads an auth material file (cookie string or bearer token)
func LoadAuthFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("auth file path not specified")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read auth file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
