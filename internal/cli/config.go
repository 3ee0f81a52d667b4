package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds defaults read from the --config file. Flags win over it.
type Config struct {
	// Output is where run writes the stream: "stdout" or a file path.
	Output string `yaml:"output"`

	// DB is the SQLite archive used by run, replay and trace.
	DB string `yaml:"db"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// database returns the --db flag value, falling back to the config file.
func (o *RootOptions) database(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Settings.DB
}
