package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Observation is a typed, time-stamped fact or measurement about one entity.
// The variable reference is nullable: untyped observations are permitted.
// Deletion is physical and restricted to the original observer.
type Observation struct {
	ID            string            `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      string            `json:"tenant_id" gorm:"type:uuid;index;not null"`
	SubjectID     string            `json:"subject_id" gorm:"type:uuid;index;not null"`
	ObserverID    *string           `json:"observer_id" gorm:"type:uuid;index"`
	VariableID    *string           `json:"variable_id" gorm:"type:uuid;index"`
	ValueNumeric  *float64          `json:"value_numeric"`
	ValueText     *string           `json:"value_text" gorm:"type:text"`
	ValueBoolean  *bool             `json:"value_boolean"`
	ValueJSON     datatypes.JSON    `json:"value_json" gorm:"type:jsonb"`
	UnitID        *string           `json:"unit_id" gorm:"type:uuid"`
	MethodID      *string           `json:"method_id" gorm:"type:uuid"`
	QualityFlagID *string           `json:"quality_flag_id" gorm:"type:uuid"`
	Attributes    datatypes.JSONMap `json:"attributes" gorm:"type:jsonb"`
	ObservedAt    time.Time         `json:"observed_at" gorm:"index;not null"`
	CreatedAt     time.Time         `json:"created_at"`

	// Relations
	Subject  *Entity     `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Variable *Vocabulary `json:"variable,omitempty" gorm:"foreignKey:VariableID"`
	Unit     *Vocabulary `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

func (o *Observation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.ObservedAt.IsZero() {
		o.ObservedAt = time.Now().UTC()
	}
	return nil
}
