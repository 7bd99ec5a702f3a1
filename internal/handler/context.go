package handler

import (
	"errors"
	"net/http"

	"graph-service/internal/model"
	"graph-service/pkg/database"
	"graph-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errNoTenant signals that the caller has no workspace membership yet. It is
// a state error, distinguishable from authorization failures, so callers can
// route to "create a workspace" instead of retrying.
var errNoTenant = errors.New("workspace membership required")

// currentUserID returns the verified caller identity set by AuthMiddleware.
func currentUserID(c echo.Context) (string, bool) {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// currentEmail returns the caller email, when the token carried one.
func currentEmail(c echo.Context) *string {
	email, ok := c.Get("email").(string)
	if !ok || email == "" {
		return nil
	}
	return &email
}

// getTenantID resolves the caller's tenant through their membership row.
// Returns nil when the caller has no membership.
func getTenantID(userID string) (*string, error) {
	var profile model.Profile
	err := database.GetDB().Where("id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile.TenantID, nil
}

// requireTenantID resolves the caller's tenant and fails with errNoTenant
// when no membership exists.
func requireTenantID(userID string) (string, error) {
	tenantID, err := getTenantID(userID)
	if err != nil {
		return "", err
	}
	if tenantID == nil {
		return "", errNoTenant
	}
	return *tenantID, nil
}

// respondTenantError maps tenant resolution failures onto the error taxonomy:
// a missing membership is a distinguishable state error, everything else is a
// database failure.
func respondTenantError(c echo.Context, log *zap.Logger, err error) error {
	if errors.Is(err, errNoTenant) {
		prometheus.RecordRequestError("state")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workspace membership required"})
	}
	log.Error("Failed to resolve workspace", zap.Error(err))
	prometheus.RecordRequestError("database")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve workspace"})
}
