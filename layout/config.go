package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a volume to be formatted. It is usually loaded from a
// YAML file:
//
//	data_blocks: 8192
type Config struct {
	// DataBlocks is the number of blocks in the data region.
	DataBlocks int `yaml:"data_blocks"`
}

// LoadConfig reads and parses the YAML volume config at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading volume config: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses a YAML volume config. Unknown fields are an error.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, errors.New("volume config is empty")
		}
		return Config{}, fmt.Errorf("parsing volume config: %w", err)
	}

	if _, err := cfg.Geometry(); err != nil {
		return Config{}, fmt.Errorf("invalid volume config: %w", err)
	}

	return cfg, nil
}

// Geometry returns the superblock of the configured volume.
func (cfg Config) Geometry() (Superblock, error) {
	return GeometryFor(cfg.DataBlocks)
}
