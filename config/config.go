package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the runtime configuration, populated from the environment.
// Learning policy (learning rate, contribution window) is fixed in
// models/constants.go and deliberately not tunable here.
type Config struct {
	Port              string `env:"PORT" envDefault:"8080"`
	AWSRegion         string `env:"AWS_REGION" envDefault:"us-east-1"`
	PriorsTable       string `env:"PRIORS_TABLE" envDefault:"ArchetypePriors"`
	ContributionTable string `env:"CONTRIBUTION_TABLE" envDefault:"ContributionLog"`
}

// Load reads configuration from the environment, picking up a local .env
// file first if one exists.
func Load() (*Config, error) {
	// Best effort; missing .env just means real env vars are used
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
