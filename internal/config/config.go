package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// AllowedOrigins feeds CORS; empty allows any origin.
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
		// ContentPath points at a YAML quiz bank; used when Postgres is not configured.
		ContentPath   string `yaml:"contentPath"`
		PassThreshold int    `yaml:"passThreshold"`
		AutoAdvance   string `yaml:"autoAdvance"`
		ReportTimeout string `yaml:"reportTimeout"`
		IdleTimeout   string `yaml:"idleTimeout"`
	} `yaml:"quiz"`
	Progress struct {
		URL                  string `yaml:"url"`
		MetricsURL           string `yaml:"metricsUrl"`
		Token                string `yaml:"token"`
		TokenURL             string `yaml:"tokenUrl"`
		ClientID             string `yaml:"clientId"`
		ClientSecret         string `yaml:"clientSecret"`
		Timeout              string `yaml:"timeout"`
		MaxRetries           uint64 `yaml:"maxRetries"`
		RetryInitialInterval string `yaml:"retryInitialInterval"`
	} `yaml:"progress"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if secret := os.Getenv("PROGRESS_CLIENT_SECRET"); secret != "" {
		cfg.Progress.ClientSecret = secret
	}
	if token := os.Getenv("PROGRESS_TOKEN"); token != "" {
		cfg.Progress.Token = token
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
