// Package config provides configuration loading and management for
// thermalvis. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Raymarch parameters
	Raymarch struct {
		// Steps is the number of samples taken between ray entry and exit
		Steps int `yaml:"steps"`

		// BaseOpacity is the per-sample opacity ceiling
		BaseOpacity float64 `yaml:"baseOpacity"`

		// WinMin and WinMax bound the physical value window mapped to
		// full display intensity
		WinMin float64 `yaml:"winMin"`
		WinMax float64 `yaml:"winMax"`
	} `yaml:"raymarch"`

	// LOD parameters
	LOD struct {
		// DistanceThresholds are the ascending camera distances at which
		// the tier policy switches to the next coarser volume
		DistanceThresholds []float64 `yaml:"distanceThresholds"`
	} `yaml:"lod"`

	// Extraction parameters
	Extraction struct {
		// QualityStride is the cell-skip stride for isosurface
		// extraction, 1 (full quality) to 4
		QualityStride int `yaml:"qualityStride"`

		// ThresholdPercentile selects the default surface threshold from
		// the volume's value distribution
		ThresholdPercentile int `yaml:"thresholdPercentile"`
	} `yaml:"extraction"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Raymarch.Steps = 96
	cfg.Raymarch.BaseOpacity = 0.35
	cfg.Raymarch.WinMin = 0.0
	cfg.Raymarch.WinMax = 1.0

	cfg.LOD.DistanceThresholds = []float64{2, 4, 8}

	cfg.Extraction.QualityStride = 1
	cfg.Extraction.ThresholdPercentile = 75

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
