package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS"`
	BaseURL       string `env:"BASE_URL"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	NATSUrl       string `env:"NATS_URL"`
	GeoAPIURL     string `env:"GEO_API_URL"`
}

func ParseFlags() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	envServerAddress := cfg.ServerAddress
	envBaseURL := cfg.BaseURL
	envDatabaseDSN := cfg.DatabaseDSN
	envNATSUrl := cfg.NATSUrl
	envGeoAPIURL := cfg.GeoAPIURL

	flag.StringVar(&cfg.ServerAddress, "a", "localhost:8080", "Address of the server")
	flag.StringVar(&cfg.BaseURL, "b", "http://localhost:8080", "Base URL for short links")
	flag.StringVar(&cfg.DatabaseDSN, "d", "", "PostgreSQL DSN (in-memory store when empty)")
	flag.StringVar(&cfg.NATSUrl, "n", "nats://localhost:4222", "NATS server URL")
	flag.StringVar(&cfg.GeoAPIURL, "g", "http://ipapi.co", "Geo IP API base URL")

	flag.Parse()

	if envServerAddress != "" {
		cfg.ServerAddress = envServerAddress
	}
	if envBaseURL != "" {
		cfg.BaseURL = envBaseURL
	}
	if envDatabaseDSN != "" {
		cfg.DatabaseDSN = envDatabaseDSN
	}
	if envNATSUrl != "" {
		cfg.NATSUrl = envNATSUrl
	}
	if envGeoAPIURL != "" {
		cfg.GeoAPIURL = envGeoAPIURL
	}

	cfg.applyDefaultValues()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.NATSUrl == "" {
		return fmt.Errorf("NATS URL cannot be empty")
	}
	return nil
}

func (c *Config) applyDefaultValues() {
	if c.ServerAddress == "" {
		c.ServerAddress = "localhost:8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.NATSUrl == "" {
		c.NATSUrl = "nats://localhost:4222"
	}
	if c.GeoAPIURL == "" {
		c.GeoAPIURL = "http://ipapi.co"
	}
}
