// Package config reads the application configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven configuration.
type Config struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	TextModel    string `env:"GMASSIST_TEXT_MODEL" envDefault:"gemini-2.5-flash"`
	ImageModel   string `env:"GMASSIST_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	DBPath       string `env:"GMASSIST_DB" envDefault:"file:gmassist.db"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
