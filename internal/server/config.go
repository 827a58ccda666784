package server

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds relay server settings, read from a YAML file with environment
// overrides for the values that differ between deployments.
type Config struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int `yaml:"sendBuffer"`

	Logging Logging `yaml:"logging"`
}

type Logging struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// DefaultConfig is what a bare `mockmate-live-server` run uses: listen on
// 8080 and accept any origin, the posture of a trusted-infrastructure relay.
func DefaultConfig() *Config {
	return &Config{
		Addr:       ":8080",
		SendBuffer: 256,
	}
}

// LoadConfig reads CONFIG_PATH (or ./config.yaml) when present, then applies
// env overrides. A missing file is not an error; the defaults stand.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults
	default:
		return nil, err
	}

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	return nil
}
