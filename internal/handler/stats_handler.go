package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wander-backend-go/internal/middleware"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/region"
	"github.com/jengzang/wander-backend-go/internal/service"
	"github.com/jengzang/wander-backend-go/pkg/response"
)

// StatsHandler serves the stats screen
type StatsHandler struct {
	statsService *service.StatsService
	catalog      *region.Catalog
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService, catalog *region.Catalog) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		catalog:      catalog,
	}
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	var q models.StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query: "+err.Error())
		return
	}
	if (q.Latitude == nil) != (q.Longitude == nil) {
		response.BadRequest(c, "lat and lon must be given together")
		return
	}

	snap, err := h.statsService.GetSnapshot(c.Request.Context(), middleware.UserID(c), q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			response.BadRequest(c, err.Error())
			return
		}
		storeError(c, err)
		return
	}

	response.Success(c, snap)
}

// GetRegions handles GET /api/v1/regions
func (h *StatsHandler) GetRegions(c *gin.Context) {
	regions := h.catalog.All()
	response.Success(c, gin.H{
		"data":  regions,
		"count": len(regions),
	})
}
