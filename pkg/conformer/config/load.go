package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a JSON or YAML file, chosen by extension, and builds the
// Config from it.
func LoadFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to read %s", path)
	}

	var values map[string]any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		values, err = decodeJSON(content)
	case ".yaml", ".yml":
		values, err = decodeYAML(content)
	default:
		return Config{}, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to decode %s", path)
	}

	return FromMap(values)
}

func decodeJSON(content []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var values map[string]any

	err := dec.Decode(&values)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	return values, nil
}

func decodeYAML(content []byte) (map[string]any, error) {
	var values map[string]any

	err := yaml.Unmarshal(content, &values)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	return values, nil
}
