package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"graph-service/internal/model"
	"graph-service/pkg/database"
	"graph-service/pkg/logger"
	"graph-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListVocabularies returns all entries visible to the caller's tenant: the
// system catalog plus the tenant's own entries. A caller without a membership
// still sees the system catalog.
func ListVocabularies(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVocabularyOperation("list")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := getTenantID(userID)
	if err != nil {
		log.Error("Failed to resolve tenant", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve workspace"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().Model(&model.Vocabulary{})
	if tenantID != nil {
		query = query.Scopes(model.VocabularyVisible(*tenantID))
	} else {
		query = query.Where("tenant_id IS NULL")
	}

	if vocabType := c.QueryParam("type"); vocabType != "" {
		query = query.Where("vocabulary_type = ?", vocabType)
	}
	if code := c.QueryParam("code"); code != "" {
		query = query.Where("code = ?", code)
	}

	vocabularies := make([]model.Vocabulary, 0)
	if err := query.Order("vocabulary_type").Order("name").Find(&vocabularies).Error; err != nil {
		log.Error("Failed to list vocabularies", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list vocabularies"})
	}

	return c.JSON(http.StatusOK, vocabularies)
}

// GetVocabulary returns a single visible entry.
func GetVocabulary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVocabularyOperation("access")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	vocab, status, err := findVisibleVocabulary(c.Param("id"), userID)
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(status, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, vocab)
}

// CreateVocabulary creates a tenant-owned entry. The request type carries no
// system flag at all: there is no code path through which a tenant can mint a
// global entry.
func CreateVocabulary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVocabularyOperation("create")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	var req struct {
		VocabularyType string            `json:"vocabulary_type"`
		Code           string            `json:"code"`
		Name           string            `json:"name"`
		Description    *string           `json:"description"`
		Path           *string           `json:"path"`
		Properties     datatypes.JSONMap `json:"properties"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse vocabulary creation request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.VocabularyType == "" || req.Code == "" || req.Name == "" {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vocabulary_type, code, and name are required"})
	}
	if !model.IsVocabularyType(req.VocabularyType) {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown vocabulary type " + strconv.Quote(req.VocabularyType)})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	// Duplicate (kind, code) within the caller's visible scope
	if _, err := model.ResolveVocabulary(database.GetDB(), tenantID, req.VocabularyType, req.Code); err == nil {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusConflict, echo.Map{"error": "vocabulary entry already exists for this type and code"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Failed to check vocabulary uniqueness", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vocabulary creation failed"})
	}

	vocab := model.Vocabulary{
		TenantID:       &tenantID,
		VocabularyType: req.VocabularyType,
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		Path:           req.Path,
		Properties:     req.Properties,
	}
	if err := database.GetDB().Create(&vocab).Error; err != nil {
		log.Error("Failed to create vocabulary", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vocabulary creation failed"})
	}

	log.Info("Vocabulary created",
		zap.String("id", vocab.ID),
		zap.String("vocabulary_type", vocab.VocabularyType),
		zap.String("code", vocab.Code),
		zap.String("tenant_id", tenantID))

	return c.JSON(http.StatusCreated, vocab)
}

// UpdateVocabulary patches a tenant-owned entry. System entries are immutable
// regardless of caller role; entries of other tenants are not visible and
// surface as not found.
func UpdateVocabulary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVocabularyOperation("update")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	vocab, status, err := findVisibleVocabulary(c.Param("id"), userID)
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	if vocab.IsSystem {
		prometheus.RecordRequestError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot modify system vocabularies"})
	}

	var req struct {
		Name        *string            `json:"name"`
		Description *string            `json:"description"`
		Path        *string            `json:"path"`
		Properties  *datatypes.JSONMap `json:"properties"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse vocabulary update request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Path != nil {
		updates["path"] = *req.Path
	}
	if req.Properties != nil {
		updates["properties"] = *req.Properties
	}
	if len(updates) == 0 {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Model(vocab).Updates(updates).Error; err != nil {
		log.Error("Failed to update vocabulary", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vocabulary update failed"})
	}

	return c.JSON(http.StatusOK, vocab)
}

// DeleteVocabulary removes a tenant-owned entry. The same gating as update
// applies.
func DeleteVocabulary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVocabularyOperation("delete")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	vocab, status, err := findVisibleVocabulary(c.Param("id"), userID)
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(status, echo.Map{"error": err.Error()})
	}
	if vocab.IsSystem {
		prometheus.RecordRequestError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot delete system vocabularies"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := database.GetDB().Delete(vocab).Error; err != nil {
		log.Error("Failed to delete vocabulary", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vocabulary deletion failed"})
	}

	log.Info("Vocabulary deleted", zap.String("id", vocab.ID))
	return c.NoContent(http.StatusNoContent)
}

// findVisibleVocabulary loads an entry within the caller's visible scope.
// Entries of other tenants surface as not found, never as forbidden.
func findVisibleVocabulary(id, userID string) (*model.Vocabulary, int, error) {
	tenantID, err := getTenantID(userID)
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to resolve workspace")
	}

	query := database.GetDB().Where("id = ?", id)
	if tenantID != nil {
		query = query.Scopes(model.VocabularyVisible(*tenantID))
	} else {
		query = query.Where("tenant_id IS NULL")
	}

	var vocab model.Vocabulary
	if err := query.First(&vocab).Error; err != nil {
		return nil, http.StatusNotFound, errors.New("vocabulary entry not found")
	}
	return &vocab, http.StatusOK, nil
}
