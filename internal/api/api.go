package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/api/handlers"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/api/middleware"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/pipeline"
)

type Services struct {
	IntelligenceService handlers.IntelligenceService
	// RefreshStatus is optional; when set it backs GET /api/v1/intelligence/status.
	RefreshStatus func() pipeline.Status
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.IntelligenceService != nil {
		h := handlers.NewIntelligenceHandler(services.IntelligenceService)
		intel := apiGroup.Group("/intelligence")
		{
			intel.GET("/reorder", h.GetReorder)
			intel.GET("/allocation", h.GetAllocation)
			intel.GET("/aging", h.GetAging)
			intel.GET("/slotting", h.GetSlotting)
			intel.GET("/anomalies", h.GetAnomalies)
			intel.GET("/dashboard", h.GetDashboard)
			intel.POST("/cache/invalidate", h.InvalidateCache)
			if services.RefreshStatus != nil {
				intel.GET("/status", func(c *gin.Context) {
					c.JSON(http.StatusOK, services.RefreshStatus())
				})
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
