package database

import (
	"graph-service/internal/model"

	"gorm.io/gorm"
)

type seedEntry struct {
	vocabularyType string
	code           string
	name           string
}

// systemVocabularies is the global catalog provisioned once per installation.
// System entries have no owning tenant and are immutable through the API.
var systemVocabularies = []seedEntry{
	// entity types
	{model.VocabularyEntityType, "person", "Person"},
	{model.VocabularyEntityType, "animal", "Animal"},
	{model.VocabularyEntityType, "plant", "Plant"},
	{model.VocabularyEntityType, "location", "Location"},
	{model.VocabularyEntityType, "project", "Project"},
	{model.VocabularyEntityType, "equipment", "Equipment"},
	{model.VocabularyEntityType, "supply", "Supply"},
	{model.VocabularyEntityType, "process", "Process"},

	// variables
	{model.VocabularyVariable, "temperature", "Temperature"},
	{model.VocabularyVariable, "humidity", "Humidity"},
	{model.VocabularyVariable, "weight", "Weight"},
	{model.VocabularyVariable, "height", "Height"},
	{model.VocabularyVariable, "ph", "pH"},
	{model.VocabularyVariable, "note", "Note"},
	{model.VocabularyVariable, "status", "Status"},

	// units
	{model.VocabularyUnit, "celsius", "Degrees Celsius"},
	{model.VocabularyUnit, "fahrenheit", "Degrees Fahrenheit"},
	{model.VocabularyUnit, "percent", "Percent"},
	{model.VocabularyUnit, "kilogram", "Kilogram"},
	{model.VocabularyUnit, "gram", "Gram"},
	{model.VocabularyUnit, "centimeter", "Centimeter"},
	{model.VocabularyUnit, "liter", "Liter"},

	// edge types
	{model.VocabularyEdgeType, "manages", "Manages"},
	{model.VocabularyEdgeType, "located_in", "Located In"},
	{model.VocabularyEdgeType, "parent_of", "Parent Of"},
	{model.VocabularyEdgeType, "member_of", "Member Of"},
	{model.VocabularyEdgeType, "uses", "Uses"},
	{model.VocabularyEdgeType, "produces", "Produces"},

	// methods
	{model.VocabularyMethod, "manual", "Manual Reading"},
	{model.VocabularyMethod, "sensor", "Sensor Reading"},
	{model.VocabularyMethod, "estimate", "Estimate"},

	// quality flags
	{model.VocabularyQualityFlag, "good", "Good"},
	{model.VocabularyQualityFlag, "suspect", "Suspect"},
	{model.VocabularyQualityFlag, "invalid", "Invalid"},
}

// SeedSystemVocabularies inserts any missing system catalog entries. Existing
// entries are left untouched, so re-running is safe and never mutates a
// system row.
func SeedSystemVocabularies(db *gorm.DB) error {
	for _, entry := range systemVocabularies {
		var count int64
		err := db.Model(&model.Vocabulary{}).
			Where("tenant_id IS NULL AND vocabulary_type = ? AND code = ?", entry.vocabularyType, entry.code).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		vocab := model.Vocabulary{
			VocabularyType: entry.vocabularyType,
			Code:           entry.code,
			Name:           entry.name,
			IsSystem:       true,
		}
		if err := db.Create(&vocab).Error; err != nil {
			return err
		}
	}
	return nil
}
