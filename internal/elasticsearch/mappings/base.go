// Package mappings defines the Elasticsearch index mappings owned by the
// recommender.
package mappings

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Field describes one mapped field.
type Field struct {
	Type     string `json:"type"`
	Analyzer string `json:"analyzer,omitempty"`
	Format   string `json:"format,omitempty"`
	Index    *bool  `json:"index,omitempty"`
	Dims     int    `json:"dims,omitempty"`
}

// BaseSettings are index-level settings shared by all mappings.
type BaseSettings struct {
	NumberOfShards   int    `json:"number_of_shards"`
	NumberOfReplicas int    `json:"number_of_replicas"`
	RefreshInterval  string `json:"refresh_interval,omitempty"`
}

// DefaultSettings returns the settings used unless an index overrides them.
func DefaultSettings() BaseSettings {
	return BaseSettings{
		NumberOfShards:   1,
		NumberOfReplicas: 1,
		RefreshInterval:  "5s",
	}
}

// ToJSON serializes a mapping for an index-create request.
func ToJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal mapping: %w", err)
	}
	return string(b), nil
}

// ValidateSettings rejects settings Elasticsearch would refuse.
func ValidateSettings(s BaseSettings) error {
	if s.NumberOfShards < 1 {
		return errors.New("number_of_shards must be at least 1")
	}
	if s.NumberOfReplicas < 0 {
		return errors.New("number_of_replicas cannot be negative")
	}
	return nil
}
