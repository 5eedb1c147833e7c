package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalPath encodes a result path as a JSON array without HTML escaping,
// so descriptions containing '<' or '&' stay readable in the database.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(path); err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalPath(data string) ([]string, error) {
	path := []string{}
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	return path, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
