// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/api/handlers"
	"github.com/dvalenciar/reorden-py/backend-go/internal/api/middleware"
	"github.com/dvalenciar/reorden-py/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(planner *service.Planner, uploadDir string, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
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

	planHandler := handlers.NewPlanHandler(planner, uploadDir)
	apiGroup := router.Group("/api/v1")
	planGroup := apiGroup.Group("/plan")
	{
		planGroup.POST("/dataset", planHandler.UploadDataset)
		planGroup.GET("/catalog", planHandler.GetCatalog)
		planGroup.GET("/projection", planHandler.GetProjection)
		planGroup.GET("/summary", planHandler.GetSummary)
		planGroup.GET("/series", planHandler.GetSeries)
		planGroup.POST("/purchases", planHandler.RegisterPurchase)
		planGroup.GET("/purchases", planHandler.ListPurchases)
		planGroup.GET("/export", planHandler.DownloadExport)
		planGroup.POST("/export/publish", planHandler.PublishExport)
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
