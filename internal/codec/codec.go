// Package codec encodes field values for synchronizers that persist them as
// bytes. Decoding targets the dynamic type of a field's initial value, so a
// field declared with an int reads back an int rather than a float64.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a value encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml", case-insensitively. An empty
// string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == YAML {
		return ".yaml"
	}
	return ".json"
}

// Marshal encodes v.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case YAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("yaml marshal: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		return data, nil
	}
}

// Decode decodes data into a new value of like's dynamic type. With a nil
// like the generic representation of the format is returned.
func Decode(f Format, data []byte, like any) (any, error) {
	if like == nil {
		var v any
		if err := unmarshal(f, data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}

	ptr := reflect.New(reflect.TypeOf(like))
	if err := unmarshal(f, data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func unmarshal(f Format, data []byte, out any) error {
	switch f {
	case YAML:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}
	}
	return nil
}
