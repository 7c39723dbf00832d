package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LoadJSON decodes a JSON file into target. Unknown fields are rejected.
// Durations are integer nanoseconds in JSON.
func LoadJSON(path string, target interface{}) error {
	data, err := readConfigFile(path)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON %s: %w", path, err)
	}
	return nil
}

// SaveJSON writes config to path as indented JSON with mode 0600.
func SaveJSON(path string, config interface{}) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeConfigFile(path, append(data, '\n'))
}
