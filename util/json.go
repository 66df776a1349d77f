package util

import (
	"encoding/json"
)

// JsonString encode v as a compact json string
func JsonString(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JsonIndent encode v as an indented json string, used for console output
func JsonIndent(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseJson decode a json string into v, an empty string leaves v untouched
func ParseJson(jsonStr string, v interface{}) error {
	if jsonStr == "" {
		return nil
	}
	return json.Unmarshal([]byte(jsonStr), v)
}
