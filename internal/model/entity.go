package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entity is a typed node representing a real-world subject. Deletion is
// logical only (IsActive flips to false) so observations and edges keep
// resolving the subject's identity after deactivation.
type Entity struct {
	ID           string            `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     string            `json:"tenant_id" gorm:"type:uuid;index;not null"`
	EntityTypeID string            `json:"entity_type_id" gorm:"type:uuid;index;not null"`
	Name         string            `json:"name" gorm:"type:varchar(200);not null"`
	Description  *string           `json:"description" gorm:"type:text"`
	ExternalID   *string           `json:"external_id" gorm:"type:varchar(200)"`
	TaxonomyPath *string           `json:"taxonomy_path" gorm:"type:text;index"`
	Latitude     *float64          `json:"latitude"`
	Longitude    *float64          `json:"longitude"`
	Attributes   datatypes.JSONMap `json:"attributes" gorm:"type:jsonb"`
	IsActive     bool              `json:"is_active" gorm:"default:true;index"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	// Relations
	EntityType *Vocabulary `json:"entity_type,omitempty" gorm:"foreignKey:EntityTypeID"`
}

func (e *Entity) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
