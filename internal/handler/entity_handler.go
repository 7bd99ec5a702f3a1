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

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards so user-supplied search terms match
// literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CreateEntity creates a typed node. The type can be given either as a
// vocabulary id or as a code; a code that does not resolve within the
// caller's visible vocabulary is a validation error naming the code.
func CreateEntity(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("create")

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
		EntityTypeID *string           `json:"entity_type_id"`
		EntityType   *string           `json:"entity_type"`
		Name         string            `json:"name"`
		Description  *string           `json:"description"`
		ExternalID   *string           `json:"external_id"`
		TaxonomyPath *string           `json:"taxonomy_path"`
		Latitude     *float64          `json:"latitude"`
		Longitude    *float64          `json:"longitude"`
		Attributes   datatypes.JSONMap `json:"attributes"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse entity creation request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.EntityTypeID == nil && req.EntityType == nil {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "entity_type or entity_type_id is required"})
	}
	if err := model.ValidateAttributes(req.Attributes); err != nil {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	// Resolve the type reference against the visible vocabulary
	var typeID string
	if req.EntityTypeID != nil {
		var vocab model.Vocabulary
		err := database.GetDB().Scopes(model.VocabularyVisible(tenantID)).
			Where("id = ? AND vocabulary_type = ?", *req.EntityTypeID, model.VocabularyEntityType).
			First(&vocab).Error
		if err != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown entity type id " + strconv.Quote(*req.EntityTypeID)})
		}
		typeID = vocab.ID
	} else {
		vocab, err := model.ResolveVocabulary(database.GetDB(), tenantID, model.VocabularyEntityType, *req.EntityType)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				prometheus.RecordRequestError("validation")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown entity type code " + strconv.Quote(*req.EntityType)})
			}
			log.Error("Failed to resolve entity type", zap.Error(err))
			prometheus.RecordRequestError("database")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "entity creation failed"})
		}
		typeID = vocab.ID
	}

	entity := model.Entity{
		TenantID:     tenantID,
		EntityTypeID: typeID,
		Name:         req.Name,
		Description:  req.Description,
		ExternalID:   req.ExternalID,
		TaxonomyPath: req.TaxonomyPath,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Attributes:   req.Attributes,
		IsActive:     true,
	}
	if err := database.GetDB().Create(&entity).Error; err != nil {
		log.Error("Failed to create entity", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "entity creation failed"})
	}

	log.Info("Entity created",
		zap.String("id", entity.ID),
		zap.String("name", entity.Name),
		zap.String("tenant_id", tenantID))

	return c.JSON(http.StatusCreated, entity)
}

// ListEntities lists the tenant's entities. Filtering by a type code that
// does not resolve yields an empty result, not an error: absence of the type
// is absence of matches.
func ListEntities(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("list")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().Model(&model.Entity{}).Scopes(model.TenantOwned(tenantID))

	entities := make([]model.Entity, 0)

	if typeCode := c.QueryParam("type"); typeCode != "" {
		vocab, err := model.ResolveVocabulary(database.GetDB(), tenantID, model.VocabularyEntityType, typeCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(http.StatusOK, entities)
			}
			log.Error("Failed to resolve entity type filter", zap.Error(err))
			prometheus.RecordRequestError("database")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list entities"})
		}
		query = query.Where("entity_type_id = ?", vocab.ID)
	}

	if q := c.QueryParam("q"); q != "" {
		// LOWER/LIKE instead of ILIKE so the predicate is portable
		query = query.Where(`LOWER(name) LIKE LOWER(?) ESCAPE '\'`, "%"+escapeLike(q)+"%")
	}
	if path := c.QueryParam("path"); path != "" {
		query = query.Where(`taxonomy_path LIKE ? ESCAPE '\'`, escapeLike(path)+"%")
	}

	// Active-only by default
	active := true
	if raw := c.QueryParam("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid active filter"})
		}
		active = parsed
	}
	query = query.Where("is_active = ?", active)

	if err := query.Order("created_at DESC").Find(&entities).Error; err != nil {
		log.Error("Failed to list entities", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list entities"})
	}

	return c.JSON(http.StatusOK, entities)
}

// GetEntity returns one entity with its type vocabulary joined.
func GetEntity(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("access")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var entity model.Entity
	err = database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Preload("EntityType").
		Where("id = ?", c.Param("id")).
		First(&entity).Error
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "entity not found"})
	}

	return c.JSON(http.StatusOK, entity)
}

// UpdateEntity applies a partial patch. The attribute map is replaced
// wholesale, never merged.
func UpdateEntity(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("update")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	var entity model.Entity
	err = database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Where("id = ?", c.Param("id")).
		First(&entity).Error
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "entity not found"})
	}

	var req struct {
		Name         *string            `json:"name"`
		Description  *string            `json:"description"`
		ExternalID   *string            `json:"external_id"`
		TaxonomyPath *string            `json:"taxonomy_path"`
		Latitude     *float64           `json:"latitude"`
		Longitude    *float64           `json:"longitude"`
		Attributes   *datatypes.JSONMap `json:"attributes"`
		IsActive     *bool              `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse entity update request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ExternalID != nil {
		updates["external_id"] = *req.ExternalID
	}
	if req.TaxonomyPath != nil {
		updates["taxonomy_path"] = *req.TaxonomyPath
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.Attributes != nil {
		if err := model.ValidateAttributes(*req.Attributes); err != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		updates["attributes"] = *req.Attributes
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Model(&entity).Updates(updates).Error; err != nil {
		log.Error("Failed to update entity", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "entity update failed"})
	}

	if err := database.GetDB().Preload("EntityType").Where("id = ?", entity.ID).First(&entity).Error; err != nil {
		log.Error("Failed to reload entity", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load entity"})
	}

	return c.JSON(http.StatusOK, entity)
}

// ArchiveEntity deactivates an entity. The row is never removed: edges and
// observations keep resolving the subject's identity after deactivation.
func ArchiveEntity(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("archive")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result := database.GetDB().Model(&model.Entity{}).
		Scopes(model.TenantOwned(tenantID)).
		Where("id = ?", c.Param("id")).
		Update("is_active", false)
	if result.Error != nil {
		log.Error("Failed to archive entity", zap.Error(result.Error))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "entity archive failed"})
	}
	if result.RowsAffected == 0 {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "entity not found"})
	}

	log.Info("Entity archived", zap.String("id", c.Param("id")))
	return c.NoContent(http.StatusNoContent)
}

// ListEntityEdges returns the one-hop neighbourhood: every edge where the
// entity is source or target, with the other endpoint's identity denormalized.
func ListEntityEdges(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("edges")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	entityID := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var entity model.Entity
	err = database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Where("id = ?", entityID).
		First(&entity).Error
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "entity not found"})
	}

	var edges []model.Edge
	err = database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Preload("Source").
		Preload("Target").
		Where("source_id = ? OR target_id = ?", entityID, entityID).
		Order("created_at DESC").
		Find(&edges).Error
	if err != nil {
		log.Error("Failed to list entity edges", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list edges"})
	}

	return c.JSON(http.StatusOK, edgeResponses(edges))
}
