package handler

import (
	"graph-service/internal/middleware"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the full route table onto an echo instance. Health and
// metrics stay public; everything under /api/v1 requires a bearer token.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", HealthCheck)
	e.GET("/metrics", MetricsHandler)

	api := e.Group("/api/v1", middleware.AuthMiddleware)

	api.GET("/profiles/me", GetMyProfile)
	api.PUT("/profiles/me", UpdateMyProfile)

	api.POST("/tenants", CreateTenant)
	api.GET("/tenants/mine", GetMyTenant)
	api.PUT("/tenants/mine", UpdateMyTenant)

	api.GET("/vocabularies", ListVocabularies)
	api.POST("/vocabularies", CreateVocabulary)
	api.GET("/vocabularies/:id", GetVocabulary)
	api.PUT("/vocabularies/:id", UpdateVocabulary)
	api.DELETE("/vocabularies/:id", DeleteVocabulary)

	api.GET("/entities", ListEntities)
	api.POST("/entities", CreateEntity)
	api.GET("/entities/:id", GetEntity)
	api.PUT("/entities/:id", UpdateEntity)
	api.DELETE("/entities/:id", ArchiveEntity)
	api.GET("/entities/:id/edges", ListEntityEdges)

	api.GET("/edges", ListEdges)
	api.POST("/edges", CreateEdge)
	api.DELETE("/edges/:id", DeleteEdge)

	api.GET("/observations", ListObservations)
	api.POST("/observations", CreateObservation)
	api.POST("/observations/batch", CreateObservationBatch)
	api.GET("/observations/:id", GetObservation)
	api.DELETE("/observations/:id", DeleteObservation)
}
