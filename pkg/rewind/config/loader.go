package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decoders maps a lower-cased file extension to its parser.
var decoders = map[string]func([]byte) (Config, error){
	".yaml": FromYAML,
	".yml":  FromYAML,
	".json": FromJSON,
}

// FromFile loads a document, choosing the format by extension:
// .yaml, .yml or .json.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("unsupported config file extension: %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return decode(data)
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	return parse("yaml", data, yaml.Unmarshal)
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	return parse("json", data, json.Unmarshal)
}

func parse(format string, data []byte, unmarshal func([]byte, any) error) (Config, error) {
	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", format, err)
	}
	return New(m), nil
}
