package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/bridgepass/internal/ir"
)

// marshalList converts a string list (stages, classpath entries) to
// canonical JSON TEXT for storage. A nil list is stored as [].
func marshalList(name string, list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	return string(data), nil
}

// unmarshalList parses a stored string list.
func unmarshalList(name, data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return list, nil
}
