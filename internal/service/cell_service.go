package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jengzang/wander-backend-go/internal/dedup"
	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/repository"
)

// CellService exposes a user's cell set
type CellService struct {
	store CellStore
	dedup *dedup.Deduplicator
}

// NewCellService creates a cell service
func NewCellService(store CellStore, d *dedup.Deduplicator) *CellService {
	return &CellService{store: store, dedup: d}
}

// List returns the user's cells; a user with no document has none
func (s *CellService) List(ctx context.Context, userID string) (models.CellSet, error) {
	cells, err := s.store.ReadAll(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.CellSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cells: %w", err)
	}
	return cells, nil
}

// Rederive collapses cells that sit within the dedup radius of an earlier
// one and writes the reduced set back. Documents written under exact-match
// ingestion need this once before their stats match. Cells appended while it
// runs are kept.
func (s *CellService) Rederive(ctx context.Context, userID string) (models.RederiveResult, error) {
	before, after, err := s.store.Compact(ctx, userID, s.dedup.FilterToUnique)
	if err != nil {
		return models.RederiveResult{}, fmt.Errorf("failed to rederive cells: %w", err)
	}

	result := models.RederiveResult{Before: before, After: after}
	if before != after {
		logger.L().Info("cells_rederived", "user", userID, "before", before, "after", after)
	}
	return result, nil
}
