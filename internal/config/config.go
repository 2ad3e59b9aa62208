package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Provider
	FaceProvider    string        `envconfig:"FACE_PROVIDER" default:"deepface"`
	DeepFaceURL     string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	// Recognition
	RecognitionThreshold float64 `envconfig:"RECOGNITION_THRESHOLD" default:"0.8"`
	EmbeddingsPath       string  `envconfig:"EMBEDDINGS_PATH" default:"data/embeddings.gob"`
	ModelPath            string  `envconfig:"MODEL_PATH" default:"data/classifier.gob"`

	// Security
	APIKey string `envconfig:"API_KEY" required:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.RecognitionThreshold < 0 || cfg.RecognitionThreshold >= 1 {
		return nil, fmt.Errorf("load config: RECOGNITION_THRESHOLD must be in [0,1), got %f", cfg.RecognitionThreshold)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
