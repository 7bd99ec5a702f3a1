package handler

import (
	"errors"
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

// entityRef is the minimal endpoint identity denormalized into edge
// responses so callers can render a connection without a second lookup.
type entityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// edgeResponse is an edge with both endpoints denormalized.
type edgeResponse struct {
	model.Edge
	Source *entityRef `json:"source,omitempty"`
	Target *entityRef `json:"target,omitempty"`
}

func edgeResponses(edges []model.Edge) []edgeResponse {
	responses := make([]edgeResponse, 0, len(edges))
	for _, edge := range edges {
		responses = append(responses, newEdgeResponse(edge))
	}
	return responses
}

func newEdgeResponse(edge model.Edge) edgeResponse {
	resp := edgeResponse{Edge: edge}
	if edge.Source != nil {
		resp.Source = &entityRef{ID: edge.Source.ID, Name: edge.Source.Name}
	}
	if edge.Target != nil {
		resp.Target = &entityRef{ID: edge.Target.ID, Name: edge.Target.Name}
	}
	resp.Edge.Source = nil
	resp.Edge.Target = nil
	return resp
}

// ListEdges lists the tenant's edges, optionally narrowed to one entity
// (matching source or target) or one edge type code.
func ListEdges(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEdgeOperation("list")

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

	query := database.GetDB().Model(&model.Edge{}).
		Scopes(model.TenantOwned(tenantID)).
		Preload("Source").
		Preload("Target")

	if entityID := c.QueryParam("entity_id"); entityID != "" {
		query = query.Where("source_id = ? OR target_id = ?", entityID, entityID)
	}
	if edgeType := c.QueryParam("edge_type"); edgeType != "" {
		query = query.Where("edge_type = ?", edgeType)
	}

	var edges []model.Edge
	if err := query.Order("created_at DESC").Find(&edges).Error; err != nil {
		log.Error("Failed to list edges", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list edges"})
	}

	return c.JSON(http.StatusOK, edgeResponses(edges))
}

// CreateEdge creates a typed relationship between two tenant-local entities.
// The type is accepted as a code or a vocabulary id; either way the code is
// denormalized onto the edge for display.
func CreateEdge(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEdgeOperation("create")

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
		SourceID   string            `json:"source_id"`
		TargetID   string            `json:"target_id"`
		EdgeType   *string           `json:"edge_type"`
		EdgeTypeID *string           `json:"edge_type_id"`
		Label      *string           `json:"label"`
		Weight     *float64          `json:"weight"`
		Properties datatypes.JSONMap `json:"properties"`
		ValidFrom  *time.Time        `json:"valid_from"`
		ValidTo    *time.Time        `json:"valid_to"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse edge creation request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.SourceID == "" || req.TargetID == "" {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "source_id and target_id are required"})
	}
	if req.EdgeType == nil && req.EdgeTypeID == nil {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "edge_type or edge_type_id is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	// Both endpoints must be entities of the caller's tenant
	var endpointCount int64
	err = database.GetDB().Model(&model.Entity{}).
		Scopes(model.TenantOwned(tenantID)).
		Where("id IN ?", []string{req.SourceID, req.TargetID}).
		Count(&endpointCount).Error
	if err != nil {
		log.Error("Failed to check edge endpoints", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edge creation failed"})
	}
	expected := int64(2)
	if req.SourceID == req.TargetID {
		expected = 1
	}
	if endpointCount < expected {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "source and target must be entities of your workspace"})
	}

	// Resolve the edge type
	var edgeTypeID, edgeTypeCode string
	if req.EdgeTypeID != nil {
		var vocab model.Vocabulary
		err := database.GetDB().Scopes(model.VocabularyVisible(tenantID)).
			Where("id = ? AND vocabulary_type = ?", *req.EdgeTypeID, model.VocabularyEdgeType).
			First(&vocab).Error
		if err != nil {
			prometheus.RecordRequestError("validation")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown edge type id " + strconv.Quote(*req.EdgeTypeID)})
		}
		edgeTypeID = vocab.ID
		edgeTypeCode = vocab.Code
	} else {
		vocab, err := model.ResolveVocabulary(database.GetDB(), tenantID, model.VocabularyEdgeType, *req.EdgeType)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				prometheus.RecordRequestError("validation")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown edge type code " + strconv.Quote(*req.EdgeType)})
			}
			log.Error("Failed to resolve edge type", zap.Error(err))
			prometheus.RecordRequestError("database")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edge creation failed"})
		}
		edgeTypeID = vocab.ID
		edgeTypeCode = vocab.Code
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}

	edge := model.Edge{
		TenantID:   tenantID,
		SourceID:   req.SourceID,
		TargetID:   req.TargetID,
		EdgeTypeID: edgeTypeID,
		EdgeType:   edgeTypeCode,
		Label:      req.Label,
		Weight:     weight,
		Properties: req.Properties,
		ValidFrom:  req.ValidFrom,
		ValidTo:    req.ValidTo,
	}
	if err := database.GetDB().Create(&edge).Error; err != nil {
		log.Error("Failed to create edge", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edge creation failed"})
	}

	if err := database.GetDB().Preload("Source").Preload("Target").Where("id = ?", edge.ID).First(&edge).Error; err != nil {
		log.Error("Failed to reload edge", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load edge"})
	}

	log.Info("Edge created",
		zap.String("id", edge.ID),
		zap.String("edge_type", edge.EdgeType),
		zap.String("tenant_id", tenantID))

	return c.JSON(http.StatusCreated, newEdgeResponse(edge))
}

// DeleteEdge hard-deletes an edge visible to the caller's tenant.
func DeleteEdge(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEdgeOperation("delete")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	tenantID, err := requireTenantID(userID)
	if err != nil {
		return respondTenantError(c, log, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := database.GetDB().Scopes(model.TenantOwned(tenantID)).
		Where("id = ?", c.Param("id")).
		Delete(&model.Edge{})
	if result.Error != nil {
		log.Error("Failed to delete edge", zap.Error(result.Error))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edge deletion failed"})
	}
	if result.RowsAffected == 0 {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "edge not found"})
	}

	log.Info("Edge deleted", zap.String("id", c.Param("id")))
	return c.NoContent(http.StatusNoContent)
}
