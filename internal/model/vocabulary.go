package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Vocabulary kinds. Every typed reference in the graph points at an entry of
// one of these kinds.
const (
	VocabularyEntityType  = "entity_type"
	VocabularyVariable    = "variable"
	VocabularyUnit        = "unit"
	VocabularyEdgeType    = "edge_type"
	VocabularyMethod      = "method"
	VocabularyQualityFlag = "quality_flag"
)

// VocabularyTypes lists the valid vocabulary kinds.
var VocabularyTypes = []string{
	VocabularyEntityType,
	VocabularyVariable,
	VocabularyUnit,
	VocabularyEdgeType,
	VocabularyMethod,
	VocabularyQualityFlag,
}

// IsVocabularyType reports whether kind is one of the known vocabulary kinds.
func IsVocabularyType(kind string) bool {
	for _, t := range VocabularyTypes {
		if t == kind {
			return true
		}
	}
	return false
}

// Vocabulary is a typed, named definition that is either global ("system",
// TenantID null) or owned by one tenant. System entries are seeded at
// provisioning time and are immutable through the API.
type Vocabulary struct {
	ID             string            `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID       *string           `json:"tenant_id" gorm:"type:uuid;index;uniqueIndex:idx_vocab_scope_kind_code"`
	VocabularyType string            `json:"vocabulary_type" gorm:"type:varchar(50);not null;index;uniqueIndex:idx_vocab_scope_kind_code"`
	Code           string            `json:"code" gorm:"type:varchar(100);not null;index;uniqueIndex:idx_vocab_scope_kind_code"`
	Name           string            `json:"name" gorm:"type:varchar(200);not null"`
	Description    *string           `json:"description" gorm:"type:text"`
	Path           *string           `json:"path" gorm:"type:text"`
	Properties     datatypes.JSONMap `json:"properties" gorm:"type:jsonb"`
	IsSystem       bool              `json:"is_system" gorm:"default:false"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (v *Vocabulary) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
