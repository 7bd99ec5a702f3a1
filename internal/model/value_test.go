package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestNewValueKindSelection(t *testing.T) {
	numeric := 22.5
	text := "ok"
	boolean := true

	assert.Equal(t, ValueKindNone, NewValue(nil, nil, nil, nil).Kind)
	assert.Equal(t, ValueKindNumeric, NewValue(&numeric, nil, nil, nil).Kind)
	assert.Equal(t, ValueKindText, NewValue(nil, &text, nil, nil).Kind)
	assert.Equal(t, ValueKindBoolean, NewValue(nil, nil, &boolean, nil).Kind)
	assert.Equal(t, ValueKindStructured, NewValue(nil, nil, nil, datatypes.JSON(`{"a":1}`)).Kind)

	// The kind names the first populated slot in declaration order
	assert.Equal(t, ValueKindNumeric, NewValue(&numeric, &text, nil, nil).Kind)
	assert.Equal(t, ValueKindText, NewValue(nil, &text, &boolean, nil).Kind)
}

func TestValueApplyPreservesAllSlots(t *testing.T) {
	numeric := 1.5
	text := "both"

	var obs Observation
	NewValue(&numeric, &text, nil, nil).Apply(&obs)

	// Multiple populated slots persist unchanged; nothing is dropped to
	// enforce exclusivity
	assert.Equal(t, &numeric, obs.ValueNumeric)
	assert.Equal(t, &text, obs.ValueText)
	assert.Nil(t, obs.ValueBoolean)
	assert.Empty(t, obs.ValueJSON)
}
