package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/metrics"
	"github.com/jengzang/wander-backend-go/internal/models"
)

// DuplicateChecker decides whether a candidate cell is already covered by a set
type DuplicateChecker interface {
	Duplicate(candidate models.DiscoveredCell, existing models.CellSet) bool
}

// DocumentKey is the per-user document key
func DocumentKey(userID string) string {
	return userID + "/holes.json"
}

// CellRepository persists each user's cell set as one JSON document
type CellRepository struct {
	docs        DocumentStore
	dedup       DuplicateChecker
	maxAttempts int
}

// NewCellRepository creates a cell repository.
// maxAttempts bounds the read-check-write retries on version conflicts.
func NewCellRepository(docs DocumentStore, dedup DuplicateChecker, maxAttempts int) *CellRepository {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CellRepository{docs: docs, dedup: dedup, maxAttempts: maxAttempts}
}

// Exists reports whether the user's document has been created
func (r *CellRepository) Exists(ctx context.Context, userID string) (bool, error) {
	return r.docs.Exists(ctx, DocumentKey(userID))
}

// Initialize creates the document holding exactly [first] if none exists.
// Repeated or concurrent calls leave the first successful write in place.
func (r *CellRepository) Initialize(ctx context.Context, userID string, first models.DiscoveredCell) (bool, error) {
	body, err := encodeCells(models.CellSet{first})
	if err != nil {
		return false, err
	}
	created, err := r.docs.Create(ctx, DocumentKey(userID), body)
	if err != nil {
		return false, fmt.Errorf("failed to initialize cells for %s: %w", userID, err)
	}
	return created, nil
}

// ReadAll returns the user's cells in insertion order
func (r *CellRepository) ReadAll(ctx context.Context, userID string) (models.CellSet, error) {
	cells, _, err := r.read(ctx, userID)
	return cells, err
}

func (r *CellRepository) read(ctx context.Context, userID string) (models.CellSet, int64, error) {
	doc, err := r.docs.Get(ctx, DocumentKey(userID))
	if err != nil {
		return nil, 0, err
	}
	cells, skipped, err := decodeCells(doc.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode cells for %s: %w", userID, err)
	}
	if skipped > 0 {
		logger.L().Warn("cells_skipped_malformed", "user", userID, "skipped", skipped)
	}
	return cells, doc.Version, nil
}

// AppendIfNew appends candidate unless it duplicates an existing cell and
// reports whether it did. The write is conditional on the version read; on
// conflict the set is re-read and re-checked.
func (r *CellRepository) AppendIfNew(ctx context.Context, userID string, candidate models.DiscoveredCell) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		cells, version, err := r.read(ctx, userID)
		if err != nil {
			return false, err
		}
		if r.dedup.Duplicate(candidate, cells) {
			return false, nil
		}

		body, err := encodeCells(append(cells, candidate))
		if err != nil {
			return false, err
		}
		_, err = r.docs.Put(ctx, DocumentKey(userID), body, version)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return false, err
		}
		metrics.VersionConflictsTotal.Inc()
		lastErr = err
	}
	return false, lastErr
}

// Compact rewrites the user's cells as reduce(cells) and returns the counts
// before and after. The write is conditional on the version read, so a cell
// appended meanwhile is never lost: the set is re-read and reduced again.
func (r *CellRepository) Compact(ctx context.Context, userID string, reduce func(models.CellSet) models.CellSet) (int, int, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		cells, version, err := r.read(ctx, userID)
		if err != nil {
			return 0, 0, err
		}
		reduced := reduce(cells)
		if len(reduced) == len(cells) {
			return len(cells), len(cells), nil
		}

		body, err := encodeCells(reduced)
		if err != nil {
			return 0, 0, err
		}
		_, err = r.docs.Put(ctx, DocumentKey(userID), body, version)
		if err == nil {
			return len(cells), len(reduced), nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return 0, 0, fmt.Errorf("failed to compact cells for %s: %w", userID, err)
		}
		metrics.VersionConflictsTotal.Inc()
		lastErr = err
	}
	return 0, 0, lastErr
}

// OverwriteAll replaces the user's cells unconditionally
func (r *CellRepository) OverwriteAll(ctx context.Context, userID string, cells models.CellSet) error {
	body, err := encodeCells(cells)
	if err != nil {
		return err
	}
	if _, err := r.docs.Put(ctx, DocumentKey(userID), body, AnyVersion); err != nil {
		return fmt.Errorf("failed to overwrite cells for %s: %w", userID, err)
	}
	return nil
}

// storedCell mirrors the JSON record; pointers detect missing fields
type storedCell struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Weight    *int       `json:"weight"`
	Timestamp *time.Time `json:"timestamp"`
}

func encodeCells(cells models.CellSet) ([]byte, error) {
	if cells == nil {
		cells = models.CellSet{}
	}
	body, err := json.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cells: %w", err)
	}
	return body, nil
}

// decodeCells parses a document body. Records missing latitude, longitude or
// timestamp are skipped; a body that is not a JSON array is ErrCorrupt.
// A missing or non-positive weight is read as 1 rather than dropping the
// record, since every cell written so far carries weight 1.
func decodeCells(body []byte) (models.CellSet, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	cells := make(models.CellSet, 0, len(raw))
	skipped := 0
	for _, rec := range raw {
		var sc storedCell
		if err := json.Unmarshal(rec, &sc); err != nil {
			skipped++
			continue
		}
		if sc.Latitude == nil || sc.Longitude == nil || sc.Timestamp == nil {
			skipped++
			continue
		}
		weight := 1
		if sc.Weight != nil && *sc.Weight >= 1 {
			weight = *sc.Weight
		}
		cells = append(cells, models.DiscoveredCell{
			Latitude:  *sc.Latitude,
			Longitude: *sc.Longitude,
			Weight:    weight,
			Timestamp: *sc.Timestamp,
		})
	}
	return cells, skipped, nil
}
