// Package config loads the client configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the shared configuration of both binaries; each reads the
// sections it cares about.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Capture CaptureConfig `yaml:"capture"`
	Player  PlayerConfig  `yaml:"player"`
}

// ServerConfig addresses the SFU.
type ServerConfig struct {
	URL        string `yaml:"url" env:"GRABBER_SERVER_URL" env-default:"ws://localhost:3000"`
	Credential string `yaml:"credential" env:"GRABBER_CREDENTIAL"`
}

// CaptureConfig selects the publisher's media source.
type CaptureConfig struct {
	// Source is "camera", "screen" or "test".
	Source string `yaml:"source" env:"GRABBER_SOURCE" env-default:"test"`
	// FramePipe is the path the external encoder writes length-prefixed
	// H264 frames to (camera and screen sources).
	FramePipe string `yaml:"frame_pipe" env:"GRABBER_FRAME_PIPE"`
	FPS       int    `yaml:"fps" env:"GRABBER_FPS" env-default:"30"`
}

// PlayerConfig tunes the viewer side.
type PlayerConfig struct {
	// PollInterval between /api/peers refreshes in the picker.
	PollInterval time.Duration `yaml:"poll_interval" env:"PLAYER_POLL_INTERVAL" env-default:"3s"`
}

// Load reads the file at path when it exists, then applies environment
// overrides. An empty path loads from the environment alone.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot read config %q: %w", path, err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("cannot read config from environment: %w", err)
	}
	return cfg, nil
}

// DefaultPath resolves the config file: the CONFIG_PATH variable when set,
// otherwise config.yaml if present, otherwise none.
func DefaultPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
