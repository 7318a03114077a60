package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BankConfig controls the acquiring bank simulator.
type BankConfig struct {
	// Decision selects the decision source: "authorize", "decline",
	// "odd-last-digit" or "seeded".
	Decision     string  `yaml:"decision"`
	Seed         int64   `yaml:"seed"`
	ApprovalRate float64 `yaml:"approval_rate"`
	LatencyMs    int     `yaml:"latency_ms"`
}

// RateLimitConfig controls the per-IP rate limiting middleware. It only
// applies when Redis is configured.
type RateLimitConfig struct {
	Limit         int `yaml:"limit"`
	WindowSeconds int `yaml:"window_seconds"`
}

type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		// Empty DSN selects the in-memory payment store.
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Redis struct {
		// Empty address selects in-memory idempotency keys and disables
		// rate limiting.
		Addr                string `yaml:"addr"`
		IdempotencyTTLHours int    `yaml:"idempotency_ttl_hours"`
	} `yaml:"redis"`
	Kafka struct {
		// Empty bootstrap servers select the log-only event publisher.
		BootstrapServers string `yaml:"bootstrap_servers"`
		Topic            string `yaml:"topic"`
	} `yaml:"kafka"`
	OTLP struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otlp"`
	Bank      BankConfig      `yaml:"bank"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Environment variables are substituted into the raw YAML before parsing.
	expandedFile := os.ExpandEnv(string(file))

	if err := yaml.Unmarshal([]byte(expandedFile), config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}
