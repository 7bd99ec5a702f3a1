package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Edge is a typed, directed, optionally time-bounded relationship between two
// entities of the same tenant. The edge type code is denormalized next to the
// vocabulary reference for display. Deletion is physical: removed edges carry
// no historical value.
type Edge struct {
	ID         string            `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID   string            `json:"tenant_id" gorm:"type:uuid;index;not null"`
	SourceID   string            `json:"source_id" gorm:"type:uuid;index;not null"`
	TargetID   string            `json:"target_id" gorm:"type:uuid;index;not null"`
	EdgeTypeID string            `json:"edge_type_id" gorm:"type:uuid;index;not null"`
	EdgeType   string            `json:"edge_type" gorm:"type:varchar(100);not null;index"`
	Label      *string           `json:"label" gorm:"type:varchar(200)"`
	Weight     float64           `json:"weight" gorm:"default:1"`
	Properties datatypes.JSONMap `json:"properties" gorm:"type:jsonb"`
	ValidFrom  *time.Time        `json:"valid_from"`
	ValidTo    *time.Time        `json:"valid_to"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// Relations
	Source *Entity `json:"-" gorm:"foreignKey:SourceID"`
	Target *Entity `json:"-" gorm:"foreignKey:TargetID"`
}

func (e *Edge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
