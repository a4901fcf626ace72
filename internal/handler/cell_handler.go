package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wander-backend-go/internal/middleware"
	"github.com/jengzang/wander-backend-go/internal/repository"
	"github.com/jengzang/wander-backend-go/internal/service"
	"github.com/jengzang/wander-backend-go/pkg/response"
)

// CellHandler serves the user's discovered cells
type CellHandler struct {
	cellService *service.CellService
}

// NewCellHandler creates a new cell handler
func NewCellHandler(cellService *service.CellService) *CellHandler {
	return &CellHandler{
		cellService: cellService,
	}
}

// GetCells handles GET /api/v1/cells
func (h *CellHandler) GetCells(c *gin.Context) {
	cells, err := h.cellService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		storeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"data":  cells,
		"count": len(cells),
	})
}

// Rederive handles POST /api/v1/cells/rederive
func (h *CellHandler) Rederive(c *gin.Context) {
	result, err := h.cellService.Rederive(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "No cells recorded")
			return
		}
		storeError(c, err)
		return
	}

	response.Success(c, result)
}

func storeError(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, repository.ErrStoreUnavailable) {
		response.Unavailable(c, "Cell store unavailable")
		return
	}
	response.InternalError(c, err.Error())
}
