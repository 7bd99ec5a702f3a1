package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAttributes(t *testing.T) {
	assert.NoError(t, ValidateAttributes(nil))
	assert.NoError(t, ValidateAttributes(map[string]interface{}{}))
	assert.NoError(t, ValidateAttributes(map[string]interface{}{
		"name":   "roma",
		"count":  float64(12),
		"active": true,
		"note":   nil,
	}))

	err := ValidateAttributes(map[string]interface{}{
		"nested": map[string]interface{}{"a": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")

	err = ValidateAttributes(map[string]interface{}{
		"list": []interface{}{1, 2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list")
}
