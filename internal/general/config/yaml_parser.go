package config

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// parseYAML decodes config.yaml strictly: unknown keys and duplicate
// sections are errors.
func parseYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	// a second document would silently be ignored
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return err
		}
		return fmt.Errorf("config must contain a single YAML document")
	}
	return nil
}
