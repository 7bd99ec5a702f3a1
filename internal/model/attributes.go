package model

import (
	"encoding/json"
	"fmt"
)

// ValidateAttributes restricts an open attribute map to scalar values
// (string, number, boolean, null). Nested objects and arrays are rejected so
// attribute equality and round-trips stay well-defined. Structured payloads
// belong in properties/value_json columns, which stay open.
func ValidateAttributes(attributes map[string]interface{}) error {
	for key, value := range attributes {
		switch value.(type) {
		case nil, string, bool, float64, int, int64, json.Number:
			// scalar, fine
		default:
			return fmt.Errorf("attribute %q must be a string, number, or boolean", key)
		}
	}
	return nil
}
