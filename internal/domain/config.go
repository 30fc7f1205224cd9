package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// ConfigType describes how a config value string should be decoded.
type ConfigType string

const (
	ConfigString  ConfigType = "STRING"
	ConfigNumber  ConfigType = "NUMBER"
	ConfigBoolean ConfigType = "BOOLEAN"
	ConfigJSON    ConfigType = "JSON"
)

// ConfigEntry is a typed key/value setting stored in the config table.
// Values are persisted as strings and decoded according to Type.
type ConfigEntry struct {
	ID          string     `json:"id,omitempty"`
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Type        ConfigType `json:"type"`
	Description string     `json:"description,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Decoded returns the value converted per Type: float64 for NUMBER, bool for
// BOOLEAN, the unmarshalled document for JSON, the raw string otherwise.
// Undecodable values fall back to the raw string.
func (c ConfigEntry) Decoded() any {
	switch c.Type {
	case ConfigNumber:
		if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return f
		}
	case ConfigBoolean:
		if b, err := strconv.ParseBool(c.Value); err == nil {
			return b
		}
	case ConfigJSON:
		var v any
		if err := json.Unmarshal([]byte(c.Value), &v); err == nil {
			return v
		}
	}
	return c.Value
}

// SetConfigRequest is the body of PUT /v1/admin/config/{key}.
type SetConfigRequest struct {
	Value       string     `json:"value"`
	Type        ConfigType `json:"type"`
	Description string     `json:"description,omitempty"`
}
