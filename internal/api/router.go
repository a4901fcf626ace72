package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/handler"
	"github.com/jengzang/wander-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Fix   *handler.FixHandler
	Cell  *handler.CellHandler
	Stats *handler.StatsHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Wander Backend API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.AuthMode, cfg.JWTSecret))
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		fixes := api.Group("/fixes")
		{
			fixes.POST("", h.Fix.PostFix)
			fixes.POST("/batch", h.Fix.PostBatch)
		}

		cells := api.Group("/cells")
		{
			cells.GET("", h.Cell.GetCells)
			cells.POST("/rederive", h.Cell.Rederive)
		}

		api.GET("/stats", h.Stats.GetStats)
		api.GET("/regions", h.Stats.GetRegions)
	}

	return r
}
