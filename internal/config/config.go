// Package config loads facerec configuration from an optional YAML file and
// FACEREC_* environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Server ServerConfig `yaml:"server"`
}

type ModelConfig struct {
	Rank     int `yaml:"rank"`      // components to keep, 0 for full rank
	MaxBatch int `yaml:"max_batch"` // maximum faces per projection request
}

type ServerConfig struct {
	GRPCPort        int    `yaml:"grpc_port"`
	HTTPPort        int    `yaml:"http_port"`
	TLSCert         string `yaml:"tls_cert"`
	TLSKey          string `yaml:"tls_key"`
	MaxMessageBytes int    `yaml:"max_message_bytes"`
	TrainPath       string `yaml:"train_path"` // dataset fitted at startup (optional)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Rank:     0,
			MaxBatch: 1024,
		},
		Server: ServerConfig{
			GRPCPort:        50051,
			HTTPPort:        8080,
			MaxMessageBytes: 64 * 1024 * 1024, // training sets travel in one message
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment. Non-numeric values for
// integer settings are reported; out-of-range numbers are left to Validate.
func (c *Config) applyEnv() error {
	var errs []error
	envInt(&errs, "FACEREC_RANK", &c.Model.Rank)
	envInt(&errs, "FACEREC_MAX_BATCH", &c.Model.MaxBatch)
	envInt(&errs, "FACEREC_GRPC_PORT", &c.Server.GRPCPort)
	envInt(&errs, "FACEREC_HTTP_PORT", &c.Server.HTTPPort)
	envInt(&errs, "FACEREC_MAX_MESSAGE_BYTES", &c.Server.MaxMessageBytes)
	c.Server.TLSCert = envString("FACEREC_TLS_CERT", c.Server.TLSCert)
	c.Server.TLSKey = envString("FACEREC_TLS_KEY", c.Server.TLSKey)
	c.Server.TrainPath = envString("FACEREC_TRAIN_PATH", c.Server.TrainPath)
	return errors.Join(errs...)
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Model.Rank < 0 {
		errs = append(errs, fmt.Errorf("model.rank must be >= 0, got %d", c.Model.Rank))
	}
	if c.Model.MaxBatch < 1 {
		errs = append(errs, fmt.Errorf("model.max_batch must be >= 1, got %d", c.Model.MaxBatch))
	}
	if !validPort(c.Server.GRPCPort) {
		errs = append(errs, fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort))
	}
	if !validPort(c.Server.HTTPPort) {
		errs = append(errs, fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort))
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		errs = append(errs, errors.New("server.tls_cert and server.tls_key must be set together"))
	}
	if c.Server.MaxMessageBytes < 1 {
		errs = append(errs, fmt.Errorf("server.max_message_bytes must be >= 1, got %d", c.Server.MaxMessageBytes))
	}
	return errors.Join(errs...)
}

// TLSEnabled reports whether both TLS files are configured.
func (c *Config) TLSEnabled() bool {
	return c.Server.TLSCert != "" && c.Server.TLSKey != ""
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}

// envInt sets *dst from an integer environment variable. An unset or empty
// variable leaves *dst alone; a non-numeric one appends to errs.
func envInt(errs *[]error, key string, dst *int) {
	s := os.Getenv(key)
	if s == "" {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, s))
		return
	}
	*dst = n
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}
