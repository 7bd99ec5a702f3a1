package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
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

// observationRequest is the wire shape of one observation. The four value
// slots stay optional for compatibility; internally they travel as a tagged
// variant. There is deliberately no field for the tenant or observer: both
// come from the request context.
type observationRequest struct {
	SubjectID     string            `json:"subject_id"`
	VariableID    *string           `json:"variable_id"`
	Variable      *string           `json:"variable"`
	ValueNumeric  *float64          `json:"value_numeric"`
	ValueText     *string           `json:"value_text"`
	ValueBoolean  *bool             `json:"value_boolean"`
	ValueJSON     datatypes.JSON    `json:"value_json"`
	UnitID        *string           `json:"unit_id"`
	MethodID      *string           `json:"method_id"`
	QualityFlagID *string           `json:"quality_flag_id"`
	Attributes    datatypes.JSONMap `json:"attributes"`
	ObservedAt    *time.Time        `json:"observed_at"`
}

// paginatedObservations is the list envelope; count is the total match count
// so callers can implement "load more".
type paginatedObservations struct {
	Data    []model.Observation `json:"data"`
	Count   int64               `json:"count"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
}

// buildObservation validates one request row and assembles the model within
// the given db handle (the batch path passes its transaction). An unresolved
// variable code is tolerated: the observation is stored untyped.
func buildObservation(db *gorm.DB, tenantID, observerID string, req observationRequest) (*model.Observation, error) {
	if req.SubjectID == "" {
		return nil, errors.New("subject_id is required")
	}

	var subject model.Entity
	err := db.Scopes(model.TenantOwned(tenantID)).
		Where("id = ?", req.SubjectID).
		First(&subject).Error
	if err != nil {
		return nil, errors.New("subject entity not found")
	}

	if err := model.ValidateAttributes(req.Attributes); err != nil {
		return nil, err
	}

	// Tolerant variable resolution: direct id or code, null when unresolved
	var variableID *string
	if req.VariableID != nil {
		var vocab model.Vocabulary
		err := db.Scopes(model.VocabularyVisible(tenantID)).
			Where("id = ? AND vocabulary_type = ?", *req.VariableID, model.VocabularyVariable).
			First(&vocab).Error
		if err == nil {
			variableID = &vocab.ID
		}
	} else if req.Variable != nil {
		vocab, err := model.ResolveVocabulary(db, tenantID, model.VocabularyVariable, *req.Variable)
		if err == nil {
			variableID = &vocab.ID
		}
	}

	observation := model.Observation{
		TenantID:      tenantID,
		SubjectID:     req.SubjectID,
		ObserverID:    &observerID,
		VariableID:    variableID,
		UnitID:        req.UnitID,
		MethodID:      req.MethodID,
		QualityFlagID: req.QualityFlagID,
		Attributes:    req.Attributes,
	}
	if req.ObservedAt != nil {
		observation.ObservedAt = *req.ObservedAt
	}

	value := model.NewValue(req.ValueNumeric, req.ValueText, req.ValueBoolean, req.ValueJSON)
	value.Apply(&observation)

	return &observation, nil
}

// CreateObservation records one time-stamped fact about an entity.
func CreateObservation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordObservationOperation("create")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	var req observationRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse observation creation request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	observation, err := buildObservation(database.GetDB(), tenantID, userID, req)
	if err != nil {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := database.GetDB().Create(observation).Error; err != nil {
		log.Error("Failed to create observation", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "observation creation failed"})
	}

	log.Info("Observation created",
		zap.String("id", observation.ID),
		zap.String("subject_id", observation.SubjectID),
		zap.String("tenant_id", tenantID))

	return c.JSON(http.StatusCreated, observation)
}

// CreateObservationBatch inserts many observations as one unit: either every
// row commits or none does. Each row resolves its own variable code.
func CreateObservationBatch(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordObservationOperation("batch_create")

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
		Observations []observationRequest `json:"observations"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse observation batch request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if len(req.Observations) == 0 {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "observations are required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	created := make([]model.Observation, 0, len(req.Observations))
	var rowErr error
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		for i, row := range req.Observations {
			observation, err := buildObservation(tx, tenantID, userID, row)
			if err != nil {
				rowErr = fmt.Errorf("observations[%d]: %s", i, err.Error())
				return rowErr
			}
			if err := tx.Create(observation).Error; err != nil {
				return err
			}
			created = append(created, *observation)
		}
		return nil
	})
	if err != nil {
		if rowErr != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": rowErr.Error()})
		}
		log.Error("Failed to create observation batch", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "observation batch failed"})
	}

	log.Info("Observation batch created",
		zap.Int("count", len(created)),
		zap.String("tenant_id", tenantID))

	return c.JSON(http.StatusCreated, created)
}

// ListObservations returns a newest-first page of the tenant's observations.
// Filtering by a variable code that does not resolve yields an empty page.
func ListObservations(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordObservationOperation("list")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage := 50
	if raw := c.QueryParam("per_page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			perPage = parsed
		}
	}
	if perPage > 200 {
		perPage = 200
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().Model(&model.Observation{}).Scopes(model.TenantOwned(tenantID))

	empty := paginatedObservations{
		Data:    make([]model.Observation, 0),
		Page:    page,
		PerPage: perPage,
	}

	if subjectID := c.QueryParam("subject_id"); subjectID != "" {
		query = query.Where("subject_id = ?", subjectID)
	}

	if variable := c.QueryParam("variable"); variable != "" {
		vocab, err := model.ResolveVocabulary(database.GetDB(), tenantID, model.VocabularyVariable, variable)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(http.StatusOK, empty)
			}
			log.Error("Failed to resolve variable filter", zap.Error(err))
			prometheus.RecordRequestError("database")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list observations"})
		}
		query = query.Where("variable_id = ?", vocab.ID)
	}

	// Inclusive time range on the observation timestamp
	if from := c.QueryParam("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
		}
		query = query.Where("observed_at >= ?", parsed)
	}
	if to := c.QueryParam("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
		}
		query = query.Where("observed_at <= ?", parsed)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		log.Error("Failed to count observations", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list observations"})
	}

	observations := make([]model.Observation, 0)
	err = query.Order("observed_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&observations).Error
	if err != nil {
		log.Error("Failed to list observations", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list observations"})
	}

	return c.JSON(http.StatusOK, paginatedObservations{
		Data:    observations,
		Count:   count,
		Page:    page,
		PerPage: perPage,
	})
}

// GetObservation returns one observation with its subject, variable, and
// unit joined.
func GetObservation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordObservationOperation("access")

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

	var observation model.Observation
	err = database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Preload("Subject").
		Preload("Variable").
		Preload("Unit").
		Where("id = ?", c.Param("id")).
		First(&observation).Error
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
	}

	return c.JSON(http.StatusOK, observation)
}

// DeleteObservation removes an observation. Only the original observer may
// delete; other members of the same tenant can see the row, so the refusal is
// forbidden rather than not found.
func DeleteObservation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordObservationOperation("delete")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	var observation model.Observation
	err = database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Where("id = ?", c.Param("id")).
		First(&observation).Error
	if err != nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
	}

	if observation.ObserverID == nil || *observation.ObserverID != userID {
		log.Warn("Observation deletion by non-observer rejected",
			zap.String("id", observation.ID),
			zap.String("user_id", userID))
		prometheus.RecordRequestError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the original observer can delete an observation"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := database.GetDB().Delete(&observation).Error; err != nil {
		log.Error("Failed to delete observation", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "observation deletion failed"})
	}

	log.Info("Observation deleted", zap.String("id", observation.ID))
	return c.NoContent(http.StatusNoContent)
}
