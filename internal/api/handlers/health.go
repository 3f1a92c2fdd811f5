package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db      *gorm.DB
	cacheOn bool
}

func NewHealthHandler(db *gorm.DB, cacheOn bool) *HealthHandler {
	return &HealthHandler{db: db, cacheOn: cacheOn}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	status := "healthy"
	code := http.StatusOK

	if h.db != nil {
		dbStatus = "connected"
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			dbStatus = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	cacheStatus := "disabled"
	if h.cacheOn {
		cacheStatus = "enabled"
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
