package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// New builds the gin router with all routes behind the auth middleware.
func New(h *Handlers, jwtSecret string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.POST("/reports/upload", h.uploadReport)
		api.GET("/reports", h.listOwnReports)
		api.GET("/reports/pending", h.listPendingReports)
		api.GET("/reports/export", h.exportReports)
		api.GET("/reports/:id", h.getReport)
		api.PUT("/reports/:id/review", h.reviewReport)
		api.DELETE("/reports/:id", h.deleteReport)
		api.POST("/chat", h.chatTurn)
	}

	return r
}
