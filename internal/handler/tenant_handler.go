package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"graph-service/internal/bootstrap"
	"graph-service/internal/model"
	"graph-service/pkg/database"
	"graph-service/pkg/logger"
	"graph-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CreateTenant handles workspace creation through the bootstrap sequence.
// The two writes are issued in order and a failure between them leaves an
// orphaned tenant row behind; that outcome is surfaced as retryable, and the
// retry generates a fresh id.
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("create")

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name     string            `json:"name"`
		Slug     *string           `json:"slug"`
		Settings datatypes.JSONMap `json:"settings"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	// The membership write needs the profile row; a caller whose first-ever
	// request is workspace creation gets one provisioned here.
	if _, created, err := findOrCreateProfile(userID, currentEmail(c)); err != nil {
		log.Error("Failed to provision profile", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation failed"})
	} else if created {
		log.Info("Profile provisioned", zap.String("user_id", userID))
	}

	seq, err := bootstrap.Begin(database.GetDB(), userID)
	if err != nil {
		if errors.Is(err, bootstrap.ErrAlreadyMember) {
			log.Warn("Tenant creation rejected, caller already has a membership",
				zap.String("user_id", userID))
			prometheus.RecordRequestError("state")
			return c.JSON(http.StatusConflict, echo.Map{"error": "caller already belongs to a workspace"})
		}
		log.Error("Failed to begin tenant bootstrap", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation failed"})
	}

	if err := seq.InsertTenant(req.Name, req.Settings); err != nil {
		// Nothing was written; the caller can retry cleanly.
		log.Error("Failed to insert tenant row", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation failed, please retry"})
	}

	if err := seq.ActivateMembership(); err != nil {
		// The tenant row is now orphaned and unreadable. Surfaced as
		// retryable; the retry abandons the orphan under a fresh id.
		log.Error("Failed to activate membership, tenant row orphaned",
			zap.String("tenant_id", seq.TenantID),
			zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation incomplete, please retry"})
	}

	tenant, err := seq.Fetch()
	if err != nil {
		log.Error("Failed to read back created tenant", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation incomplete, please retry"})
	}

	if req.Slug != nil {
		if err := database.GetDB().Model(tenant).Update("slug", *req.Slug).Error; err != nil {
			log.Warn("Failed to set tenant slug", zap.Error(err))
		}
	}

	log.Info("Tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("name", tenant.Name),
		zap.String("user_id", userID))

	return c.JSON(http.StatusCreated, tenant)
}

// GetMyTenant returns the caller's workspace.
func GetMyTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("access")

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
	if tenantID == nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no workspace"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	if err := database.GetDB().Where("id = ?", *tenantID).First(&tenant).Error; err != nil {
		log.Error("Tenant not found", zap.String("tenant_id", *tenantID), zap.Error(err))
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "workspace not found"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// UpdateMyTenant patches the caller's workspace name and settings. Only
// members of the tenant reach this point: the membership lookup is the
// authorization check.
func UpdateMyTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("update")

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
	if tenantID == nil {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no workspace"})
	}

	var req struct {
		Name     *string            `json:"name"`
		Slug     *string            `json:"slug"`
		Settings *datatypes.JSONMap `json:"settings"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		updates["slug"] = *req.Slug
	}
	if req.Settings != nil {
		updates["settings"] = *req.Settings
	}
	if len(updates) == 0 {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Model(&model.Tenant{}).Where("id = ?", *tenantID).Updates(updates).Error; err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace update failed"})
	}

	var tenant model.Tenant
	if err := database.GetDB().Where("id = ?", *tenantID).First(&tenant).Error; err != nil {
		log.Error("Failed to reload tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load workspace"})
	}

	log.Info("Tenant updated", zap.String("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, tenant)
}
