package database

import (
	"testing"

	"graph-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func TestSeedSystemVocabularies(t *testing.T) {
	db := openSeedDB(t)

	var count int64
	require.NoError(t, db.Model(&model.Vocabulary{}).Count(&count).Error)
	assert.EqualValues(t, len(systemVocabularies), count)

	var entries []model.Vocabulary
	require.NoError(t, db.Find(&entries).Error)
	for _, entry := range entries {
		assert.True(t, entry.IsSystem)
		assert.Nil(t, entry.TenantID)
	}
}

func TestSeedIsIdempotentAndNonDestructive(t *testing.T) {
	db := openSeedDB(t)

	// A renamed system entry survives a re-run untouched
	require.NoError(t, db.Model(&model.Vocabulary{}).
		Where("tenant_id IS NULL AND vocabulary_type = ? AND code = ?", model.VocabularyVariable, "temperature").
		Update("name", "Renamed").Error)

	require.NoError(t, SeedSystemVocabularies(db))

	var count int64
	require.NoError(t, db.Model(&model.Vocabulary{}).Count(&count).Error)
	assert.EqualValues(t, len(systemVocabularies), count)

	var entry model.Vocabulary
	require.NoError(t, db.Where("tenant_id IS NULL AND vocabulary_type = ? AND code = ?",
		model.VocabularyVariable, "temperature").First(&entry).Error)
	assert.Equal(t, "Renamed", entry.Name)
}
