package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes a YAML file into target. Keys that do not map to a
// field of target are rejected.
func LoadYAML(path string, target interface{}) error {
	data, err := readConfigFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to unmarshal YAML %s: %w", path, err)
	}
	return nil
}

// SaveYAML writes config to path as YAML with mode 0600.
func SaveYAML(path string, config interface{}) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return writeConfigFile(path, buf.Bytes())
}

func readConfigFile(path string) ([]byte, error) {
	// #nosec G304 -- the config path comes from the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return data, nil
}

func writeConfigFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
