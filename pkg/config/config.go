// Package config provides configuration loading and management for
// slicersynthseg. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"slicersynthseg/pkg/synthseg"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// SynthSeg locates the external tool installation
	SynthSeg struct {
		// ToolRoot is the root directory of the external tool's installation
		ToolRoot string `yaml:"toolRoot"`

		// Interpreter is the Python executable used to run the tool
		Interpreter string `yaml:"interpreter"`
	} `yaml:"synthseg"`

	// Run holds the default options for a segmentation run
	Run struct {
		// OutputDir is where output files are written; empty means the
		// input file's directory
		OutputDir string `yaml:"outputDir"`

		// UseCPU forces inference on the CPU instead of the GPU
		UseCPU bool `yaml:"useCpu"`

		// Fast enables the tool's faster, lower-accuracy mode
		Fast bool `yaml:"fast"`

		// Crop sets an explicit crop size for inference (0 = tool default)
		Crop int `yaml:"crop"`

		// Threads is the number of threads the tool may use (0 = tool default)
		Threads int `yaml:"threads"`

		// V1 selects the tool's version-1 model variant
		V1 bool `yaml:"v1"`

		// TimeoutMinutes bounds a run's duration; 0 disables the guard
		TimeoutMinutes int `yaml:"timeoutMinutes"`
	} `yaml:"run"`

	// Watch holds the batch-mode parameters
	Watch struct {
		// InputDir is the directory scanned for unsegmented images
		InputDir string `yaml:"inputDir"`

		// Schedule is the cron expression driving the scans
		Schedule string `yaml:"schedule"`
	} `yaml:"watch"`

	// Output parameters
	Output struct {
		// SavePreview determines whether preview slices are rendered after
		// a successful run
		SavePreview bool `yaml:"savePreview"`

		// PreviewDir is the directory preview slices are saved to; empty
		// means "<outputDir>/preview"
		PreviewDir string `yaml:"previewDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// The original tool is routinely run without a GPU, and the v1 model is
	// the variant the distribution ships with.
	cfg.Run.UseCPU = true
	cfg.Run.V1 = true

	cfg.Watch.Schedule = "@every 10m"
	cfg.Output.Verbose = true

	return cfg
}

// ConfigDir returns the directory holding the persisted configuration.
func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".slicersynthseg")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// Environment variables SYNTHSEG_TOOL_ROOT, SYNTHSEG_PYTHON and
// SYNTHSEG_OUTPUT_DIR override the corresponding file values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if root := os.Getenv("SYNTHSEG_TOOL_ROOT"); root != "" {
		cfg.SynthSeg.ToolRoot = root
	}
	if interp := os.Getenv("SYNTHSEG_PYTHON"); interp != "" {
		cfg.SynthSeg.Interpreter = interp
	}
	if dir := os.Getenv("SYNTHSEG_OUTPUT_DIR"); dir != "" {
		cfg.Run.OutputDir = dir
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Environment returns the tool environment described by the configuration.
func (c *Config) Environment() synthseg.Environment {
	return synthseg.Environment{
		ToolRoot:    c.SynthSeg.ToolRoot,
		Interpreter: c.SynthSeg.Interpreter,
	}
}
