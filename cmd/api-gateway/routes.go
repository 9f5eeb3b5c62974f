package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulk-loan-api/internal/handler"
)

type routeHandlers struct {
	loans   *handler.LoanHandler
	summary *handler.SummaryHandler
	export  *handler.ExportHandler
	images  *handler.ImageHandler
	metrics *handler.MetricsHandler
	upload  gin.HandlerFunc
}

// registerRoutes mounts the versioned API. upload guards every endpoint that accepts files.
func registerRoutes(api *gin.RouterGroup, h routeHandlers) {
	loans := api.Group("/loans")
	loans.POST("/preview", h.loans.Preview)
	loans.GET("", h.loans.List)
	loans.POST("", h.upload, h.loans.Create)
	loans.GET("/summary", h.summary.Summary)
	loans.GET("/export", h.export.Export)
	loans.GET("/:id", h.loans.Get)
	loans.DELETE("/:id", h.loans.Delete)
	loans.POST("/:id/returns", h.upload, h.loans.RecordReturn)
	loans.POST("/:id/images", h.upload, h.loans.AttachBorrowImages)
	loans.POST("/:id/returns/:eventId/images", h.upload, h.loans.AttachReturnImages)

	api.GET("/images/download", h.images.Download)
	api.GET("/metrics/snapshot", h.metrics.Snapshot)
}
