package model

import (
	"gorm.io/datatypes"
)

// ValueKind discriminates the observation value variant.
type ValueKind string

const (
	ValueKindNone       ValueKind = "none"
	ValueKindNumeric    ValueKind = "numeric"
	ValueKindText       ValueKind = "text"
	ValueKindBoolean    ValueKind = "boolean"
	ValueKindStructured ValueKind = "structured"
)

// Value is the tagged internal form of an observation's polymorphic value.
// The wire format keeps four optional slots for compatibility; internally the
// value travels with an explicit kind. The store does not enforce "exactly
// one slot": callers may populate several, and all populated slots are
// persisted unchanged. Kind names the first populated slot in
// numeric, text, boolean, structured order.
type Value struct {
	Kind       ValueKind
	Numeric    *float64
	Text       *string
	Boolean    *bool
	Structured datatypes.JSON
}

// NewValue builds the tagged variant from the four wire slots.
func NewValue(numeric *float64, text *string, boolean *bool, structured datatypes.JSON) Value {
	v := Value{
		Kind:       ValueKindNone,
		Numeric:    numeric,
		Text:       text,
		Boolean:    boolean,
		Structured: structured,
	}
	switch {
	case numeric != nil:
		v.Kind = ValueKindNumeric
	case text != nil:
		v.Kind = ValueKindText
	case boolean != nil:
		v.Kind = ValueKindBoolean
	case len(structured) > 0:
		v.Kind = ValueKindStructured
	}
	return v
}

// Apply copies the variant into the observation's value slots.
func (v Value) Apply(o *Observation) {
	o.ValueNumeric = v.Numeric
	o.ValueText = v.Text
	o.ValueBoolean = v.Boolean
	o.ValueJSON = v.Structured
}
