package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CaptureConfig holds the persisted capture settings: the last-used
// resolution preset, the performance mode, and whether captures are
// mirrored into the platform gallery.
type CaptureConfig struct {
	// ResolutionPreset is "auto", "max" or "target".
	ResolutionPreset string `json:"resolution_preset"`
	// MegapixelTarget only applies when ResolutionPreset is "target".
	MegapixelTarget float64 `json:"megapixel_target"`
	// RestorePresetOnStart restores the persisted preset on session
	// start; when false the session pins "max" regardless.
	RestorePresetOnStart bool `json:"restore_preset_on_start"`
	// PerformanceMode is "normal" or "low-power" (lower preview FPS).
	PerformanceMode string `json:"performance_mode"`
	SaveToGallery   bool   `json:"save_to_gallery"`
}

type AppConfig struct {
	ServerPort string        `json:"server_port"`
	ServerIP   string        `json:"server_ip"`
	CaptureDir string        `json:"capture_dir"`
	Capture    CaptureConfig `json:"capture"`
}

// Default config
func defaultConfig() *AppConfig {
	return &AppConfig{
		ServerIP:   "localhost",
		ServerPort: "8080",
		CaptureDir: "",
		Capture: CaptureConfig{
			ResolutionPreset:     "auto",
			MegapixelTarget:      12,
			RestorePresetOnStart: true,
			PerformanceMode:      "normal",
			SaveToGallery:        false,
		},
	}
}

// getConfigPath ensures the config directory and file follow the Linux XDG convention
func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "clearvaluecam")

	// Ensure the directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the config file and returns a config object, falling back
// to defaults for a missing file or missing fields.
func Load() (*AppConfig, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("error getting config path: %v", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(configPath string) (*AppConfig, error) {
	// Check if the config file exists and return the default config if not
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return defaultConfig(), nil
	}

	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("error opening config file: %v", err)
	}
	defer configFile.Close()

	data, err := io.ReadAll(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	// Load the default config to fill in missing fields
	config := defaultConfig()

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file: %v", err)
	}

	return config, nil
}

// Save writes the config back to the user config directory.
func Save(config *AppConfig) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("error getting config path: %v", err)
	}
	return SaveTo(configPath, config)
}

// SaveTo writes the config to an explicit path.
func SaveTo(configPath string, config *AppConfig) error {
	configBytes, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling config: %v", err)
	}

	if err := os.WriteFile(configPath, configBytes, 0644); err != nil {
		return fmt.Errorf("error writing config file: %v", err)
	}

	return nil
}
