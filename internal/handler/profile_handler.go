package handler

import (
	"errors"
	"net/http"
	"time"

	"graph-service/internal/model"
	"graph-service/pkg/database"
	"graph-service/pkg/logger"
	"graph-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// findOrCreateProfile loads the caller's profile, provisioning the row on
// first contact. A fresh profile has no tenant membership yet. Every entry
// point that needs the row to exist goes through here, so a caller's first
// request can be anything, not just the profile endpoint.
func findOrCreateProfile(userID string, email *string) (*model.Profile, bool, error) {
	var profile model.Profile
	err := database.GetDB().Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = model.Profile{
			ID:    userID,
			Email: email,
		}
		if createErr := database.GetDB().Create(&profile).Error; createErr != nil {
			return nil, false, createErr
		}
		return &profile, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &profile, false, nil
}

// GetMyProfile returns the caller's profile.
func GetMyProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	profile, created, err := findOrCreateProfile(userID, currentEmail(c))
	if err != nil {
		log.Error("Failed to load profile", zap.Error(err))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}
	if created {
		log.Info("Profile provisioned", zap.String("user_id", userID))
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateMyProfile patches the caller's profile fields.
func UpdateMyProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		DisplayName *string `json:"display_name"`
		Bio         *string `json:"bio"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse profile update request", zap.Error(err))
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		prometheus.RecordRequestError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result := database.GetDB().Model(&model.Profile{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		log.Error("Failed to update profile", zap.Error(result.Error))
		prometheus.RecordRequestError("database")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile update failed"})
	}
	if result.RowsAffected == 0 {
		prometheus.RecordRequestError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}

	var profile model.Profile
	if err := database.GetDB().Where("id = ?", userID).First(&profile).Error; err != nil {
		log.Error("Failed to reload profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}

	return c.JSON(http.StatusOK, profile)
}
