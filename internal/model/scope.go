package model

import (
	"gorm.io/gorm"
)

// The authorization boundary: every read and write against graph rows goes
// through one of these scopes, keyed on the caller's resolved tenant id. The
// backing store's own row-level policies are the second line of defense; the
// service never issues an unscoped statement in the first place.

// TenantOwned admits only rows belonging to the given tenant.
func TenantOwned(tenantID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// VocabularyVisible admits system entries and the tenant's own entries.
func VocabularyVisible(tenantID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id IS NULL OR tenant_id = ?", tenantID)
	}
}

// ResolveVocabulary looks a code up within the tenant's visible set. A
// tenant-owned entry shadows a system entry with the same code: ordering on
// "tenant_id IS NULL" puts the tenant match first, so the lookup is
// deterministic. Returns gorm.ErrRecordNotFound when no visible entry matches.
func ResolveVocabulary(db *gorm.DB, tenantID, vocabularyType, code string) (*Vocabulary, error) {
	var vocab Vocabulary
	err := db.Scopes(VocabularyVisible(tenantID)).
		Where("vocabulary_type = ? AND code = ?", vocabularyType, code).
		Order("tenant_id IS NULL ASC").
		First(&vocab).Error
	if err != nil {
		return nil, err
	}
	return &vocab, nil
}
