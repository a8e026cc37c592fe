// Package config provides the configuration structure for the doc-speech-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                string `toml:"url"`
	DocUploadedSubject string `toml:"doc_uploaded_subject"`
	StatusSubject      string `toml:"status_subject"`
	SpeechSubject      string `toml:"speech_subject"`
	DocumentBucket     string `toml:"document_bucket"`
	AudioBucket        string `toml:"audio_bucket"`
}

// SynthesisConfig holds the configuration for the speech engine client and the
// per-document prosody defaults.
type SynthesisConfig struct {
	ServiceURL     string `toml:"service_url"`
	DefaultVoice   string `toml:"default_voice"`
	DefaultRate    string `toml:"default_rate"`
	DefaultPitch   string `toml:"default_pitch"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SigningConfig holds the configuration for issuing signed download references.
type SigningConfig struct {
	Secret        string `toml:"secret"`
	PublicBaseURL string `toml:"public_base_url"`
	URLTTLSeconds int    `toml:"url_ttl_seconds"`
}

// ServiceConfig holds deployment-level labels for the service.
type ServiceConfig struct {
	Region string `toml:"region"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	Synthesis SynthesisConfig `toml:"synthesis"`
	Signing   SigningConfig   `toml:"signing"`
	Service   ServiceConfig   `toml:"service"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration for the doc-speech-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
