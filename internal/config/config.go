// Copyright 2026 Luis Neves
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

// Mode selects the application profile.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

// Config holds the complete application configuration.
type Config struct {
	Service string       `json:"service_name" env:"APP_NAME" envDefault:"wake"`
	Version string       `json:"version"      env:"VERSION"  envDefault:"v0.1.0"`
	Mode    Mode         `json:"mode"         env:"MODE"     envDefault:"debug"`
	NATS    NATSConfig   `json:"nats"         envPrefix:"NATS_"`
	Logger  LoggerConfig `json:"logger"       envPrefix:"LOG_"`
}

// LoggerConfig configures the slog pipeline.
type LoggerConfig struct {
	OTELExporter string `json:"otel_exporter" env:"OTEL_EXPORTER" envDefault:"otlp-http"` // otlp-http|otlp-grpc
	OTELEndpoint string `json:"otel_endpoint" env:"OTEL_ENDPOINT"`
}

func LoadConfig() (*Config, error) {
	cfg := Config{
		NATS: NATSConfig{
			Host:          DefaultNATSHost,
			Port:          DefaultNATSPort,
			MaxReconnects: DefaultMaxReconnects,
			ReconnectWait: DefaultReconnectWait,
			DrainTimeout:  DefaultDrainTimeout,
			PingInterval:  DefaultPingInterval,
			MaxPingsOut:   DefaultMaxPingsOut,
			ClientName:    "wake",
		},
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = fmt.Sprintf("nats://%s:%s", cfg.NATS.Host, cfg.NATS.Port)
	}

	return &cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Mode != ModeDebug && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q", ModeDebug, ModeRelease)
	}
	if c.NATS.Host == "" {
		return fmt.Errorf("NATS host is required")
	}
	if c.NATS.Port == "" {
		return fmt.Errorf("NATS port is required")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS URL is required")
	}
	return nil
}

func (c *Config) ServiceName() string { return c.Service }
func (c *Config) GetVersion() string  { return c.Version }
