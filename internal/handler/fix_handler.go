package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wander-backend-go/internal/middleware"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/service"
	"github.com/jengzang/wander-backend-go/internal/spatial"
	"github.com/jengzang/wander-backend-go/pkg/response"
)

const maxBatchFixes = 1000

// FixHandler accepts position fixes from devices
type FixHandler struct {
	ingestService *service.IngestService
}

// NewFixHandler creates a new fix handler
func NewFixHandler(ingestService *service.IngestService) *FixHandler {
	return &FixHandler{
		ingestService: ingestService,
	}
}

// PostFix handles POST /api/v1/fixes
func (h *FixHandler) PostFix(c *gin.Context) {
	var req models.FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid fix: "+err.Error())
		return
	}
	if err := validateFix(req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result := h.ingestService.HandleFix(c.Request.Context(), middleware.UserID(c), req.Fix(time.Now().UTC()))
	response.Success(c, result)
}

// PostBatch handles POST /api/v1/fixes/batch. Fixes are applied in order.
func (h *FixHandler) PostBatch(c *gin.Context) {
	var reqs []models.FixRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.BadRequest(c, "Invalid batch: "+err.Error())
		return
	}
	if len(reqs) > maxBatchFixes {
		response.Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Batch exceeds %d fixes", maxBatchFixes))
		return
	}
	for i, req := range reqs {
		if err := validateFix(req); err != nil {
			response.BadRequest(c, fmt.Sprintf("fix %d: %s", i, err))
			return
		}
	}

	userID := middleware.UserID(c)
	now := time.Now().UTC()
	results := make([]models.IngestResult, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, h.ingestService.HandleFix(c.Request.Context(), userID, req.Fix(now)))
	}

	response.Success(c, gin.H{
		"results": results,
		"count":   len(results),
	})
}

func validateFix(req models.FixRequest) error {
	if req.Latitude == nil || req.Longitude == nil {
		return fmt.Errorf("latitude and longitude are required")
	}
	if !spatial.ValidCoordinate(*req.Latitude, *req.Longitude) {
		return fmt.Errorf("coordinate out of range")
	}
	return nil
}
