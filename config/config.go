package config

import (
	"fmt"
	"os"

	"github.com/gr-butler/am2301/env"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Station  StationConfig  `yaml:"station"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Postgres PostgresConfig `yaml:"postgres"`
	Wow      WowConfig      `yaml:"wow"`
}

type StationConfig struct {
	// Pin is the GPIO name of the sensor data line, e.g. "GPIO21".
	Pin string `yaml:"pin"`
	// PollIntervalSec is the steady-state measurement period.
	PollIntervalSec int `yaml:"poll_interval_sec"`
	// ListenAddr serves the JSON snapshot and /metrics.
	ListenAddr string `yaml:"listen_addr"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// WowConfig enables Met Office WOW uploads. The site credentials come
// from the WOWSITEID and WOWPIN environment variables, never the file.
type WowConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	return &Config{
		Station: StationConfig{
			Pin:             env.SensorPin,
			PollIntervalSec: env.MinPollSeconds,
			ListenAddr:      ":80",
		},
		MQTT: MQTTConfig{
			ClientID: "climatestation",
			Topic:    "climate/am2301",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path means
// defaults only. The result is always validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration correctness. It does not mutate the
// configuration.
func Validate(cfg *Config) error {
	if cfg.Station.Pin == "" {
		return fmt.Errorf("config: station.pin must be set")
	}
	if cfg.Station.PollIntervalSec < env.MinPollSeconds {
		return fmt.Errorf("config: station.poll_interval_sec is %d, the sensor supports at most one read per %d seconds",
			cfg.Station.PollIntervalSec, env.MinPollSeconds)
	}
	if cfg.Station.ListenAddr == "" {
		return fmt.Errorf("config: station.listen_addr must be set")
	}
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("config: mqtt.broker must be set when mqtt is enabled")
		}
		if cfg.MQTT.Topic == "" {
			return fmt.Errorf("config: mqtt.topic must be set when mqtt is enabled")
		}
	}
	if cfg.Postgres.Enabled && cfg.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres.dsn must be set when postgres is enabled")
	}
	return nil
}
