package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Inference InferenceConfig `json:"inference"`
	Image     ImageConfig     `json:"image"`
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
}

// InferenceConfig selects and tunes the completion backend
type InferenceConfig struct {
	Backend string `json:"backend"` // "openai" or "ollama"
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// ImageConfig bounds what gets uploaded to the model
type ImageConfig struct {
	MaxDimension int `json:"max_dimension"`
	JPEGQuality  int `json:"jpeg_quality"`
}

// ServerConfig holds the HTTP surface settings
type ServerConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// StorageConfig locates the local settings database
type StorageConfig struct {
	DBPath string `json:"db_path"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			Backend: "openai",
			BaseURL: "",
			Model:   "gpt-4o",
		},
		Image: ImageConfig{
			MaxDimension: 1200,
			JPEGQuality:  80,
		},
		Server: ServerConfig{
			ListenAddr: ":8090",
		},
		Storage: StorageConfig{
			DBPath: "carb-analyzer.db",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv loads a .env file when one is present and overlays recognized
// environment variables on top of the configuration.
func (c *Config) ApplyEnv() {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	if v := os.Getenv("CARB_ANALYZER_BACKEND"); v != "" {
		c.Inference.Backend = v
	}
	if v := os.Getenv("CARB_ANALYZER_BASE_URL"); v != "" {
		c.Inference.BaseURL = v
	}
	if v := os.Getenv("CARB_ANALYZER_MODEL"); v != "" {
		c.Inference.Model = v
	}
	if v := os.Getenv("CARB_ANALYZER_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("CARB_ANALYZER_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Inference.Backend != "openai" && c.Inference.Backend != "ollama" {
		return fmt.Errorf("inference.backend must be openai or ollama")
	}

	if c.Inference.Model == "" {
		return fmt.Errorf("inference.model cannot be empty")
	}

	if c.Image.MaxDimension < 1 {
		return fmt.Errorf("image.max_dimension must be positive")
	}

	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("image.jpeg_quality must be between 1 and 100")
	}

	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr cannot be empty")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "carb-analyzer", "config.json")
}
