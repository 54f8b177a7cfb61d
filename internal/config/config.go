package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI struct {
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"ai"`
	Chunk struct {
		MaxSize int `yaml:"max_size"`
	} `yaml:"chunk"`
	Cache struct {
		Backend string `yaml:"backend"` // file | sqlite | memory
		Path    string `yaml:"path"`
	} `yaml:"cache"`
	Pipeline struct {
		Workers           int     `yaml:"workers"`
		MaxAttempts       int     `yaml:"max_attempts"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"pipeline"`
}

// LoadConfig reads the YAML config at path, layered under .env and
// environment overrides. A missing config file is not an error; the
// defaults apply.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := defaults()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("LEGALAGENT_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if model := os.Getenv("LEGALAGENT_MODEL"); model != "" {
		cfg.AI.Model = model
	}

	applyFloors(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.AI.Model = "gemini-2.5-flash"
	cfg.AI.Temperature = 0.3
	cfg.Chunk.MaxSize = 6000
	cfg.Cache.Backend = "file"
	cfg.Cache.Path = "chunk_cache.json"
	cfg.Pipeline.Workers = 4
	cfg.Pipeline.MaxAttempts = 3
	cfg.Pipeline.RequestsPerSecond = 2.0
	return cfg
}

// applyFloors backfills zero values a partial YAML file may have left.
func applyFloors(cfg *Config) {
	d := defaults()
	if cfg.AI.Model == "" {
		cfg.AI.Model = d.AI.Model
	}
	if cfg.AI.Temperature <= 0 {
		cfg.AI.Temperature = d.AI.Temperature
	}
	if cfg.Chunk.MaxSize <= 0 {
		cfg.Chunk.MaxSize = d.Chunk.MaxSize
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = d.Cache.Backend
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = d.Cache.Path
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = d.Pipeline.Workers
	}
	if cfg.Pipeline.MaxAttempts <= 0 {
		cfg.Pipeline.MaxAttempts = d.Pipeline.MaxAttempts
	}
}
