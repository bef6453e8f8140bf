package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/slotgraph/internal/ir"
)

// marshalSlots converts a list of full slot names to canonical JSON TEXT.
func marshalSlots(slots []string) (string, error) {
	if slots == nil {
		slots = []string{}
	}
	data, err := ir.MarshalCanonical(slots)
	if err != nil {
		return "", fmt.Errorf("marshal slots: %w", err)
	}
	return string(data), nil
}

// unmarshalSlots parses a JSON TEXT list of full slot names.
// Returns an empty slice, not nil, for an empty list.
func unmarshalSlots(data string) ([]string, error) {
	slots := []string{}
	if data == "" || data == "[]" {
		return slots, nil
	}
	if err := json.Unmarshal([]byte(data), &slots); err != nil {
		return nil, fmt.Errorf("unmarshal slots: %w", err)
	}
	return slots, nil
}
