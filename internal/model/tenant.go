package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant represents an isolated organization. It is the root of isolation:
// every other row carries a tenant id and is never read without it.
type Tenant struct {
	ID        string            `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string            `json:"name" gorm:"type:varchar(100);not null"`
	Slug      *string           `json:"slug" gorm:"type:varchar(100)"`
	Settings  datatypes.JSONMap `json:"settings" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not pre-generate one.
// The bootstrap protocol pre-generates the id so it is known before any read.
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
