package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FactCheck configures the verification pipeline.
type FactCheck struct {
	Workers        int     `yaml:"workers"`
	QueueSize      int     `yaml:"queueSize"`
	FlagThreshold  float64 `yaml:"flagThreshold"`
	MaxRetries     int     `yaml:"maxRetries"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	BackoffMillis  int     `yaml:"backoffMillis"`
}

// Config is the application configuration loaded from YAML.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Gemini struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	FactCheck FactCheck `yaml:"factCheck"`

	Rating struct {
		KFactor       float64 `yaml:"kFactor"`
		InitialRating int     `yaml:"initialRating"`
	} `yaml:"rating"`
}

// LoadConfig reads the configuration file and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.URI == "" {
		c.Database.URI = "mongodb://localhost:27017/debatehub"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.FactCheck.Workers == 0 {
		c.FactCheck.Workers = 4
	}
	if c.FactCheck.QueueSize == 0 {
		c.FactCheck.QueueSize = 256
	}
	if c.FactCheck.FlagThreshold == 0 {
		c.FactCheck.FlagThreshold = 0.4
	}
	if c.FactCheck.MaxRetries == 0 {
		c.FactCheck.MaxRetries = 3
	}
	if c.FactCheck.TimeoutSeconds == 0 {
		c.FactCheck.TimeoutSeconds = 15
	}
	if c.FactCheck.BackoffMillis == 0 {
		c.FactCheck.BackoffMillis = 500
	}
	if c.Rating.KFactor == 0 {
		c.Rating.KFactor = 32
	}
	if c.Rating.InitialRating == 0 {
		c.Rating.InitialRating = 1200
	}
}
