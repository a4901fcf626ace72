package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/wander-backend-go/internal/database"
	"github.com/jengzang/wander-backend-go/internal/dedup"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/repository"
)

var baseTime = time.Date(2024, 5, 5, 9, 0, 0, 0, time.UTC)

func newTestDedup() *dedup.Deduplicator {
	return dedup.New(500, dedup.ModeRadius)
}

func createTestStore(t *testing.T) *repository.CellRepository {
	t.Helper()
	db, err := database.Open(database.Config{
		Dialect: database.DialectSQLite,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewCellRepository(repository.NewSQLDocumentRepository(db, database.DialectSQLite), newTestDedup(), 3)
}

func fixAt(lat, lon float64, offset time.Duration) models.PositionFix {
	return models.PositionFix{Latitude: lat, Longitude: lon, Timestamp: baseTime.Add(offset)}
}

// flakyStore wraps a CellStore and fails every call while err is set
type flakyStore struct {
	next CellStore

	mu  sync.Mutex
	err error
}

func (f *flakyStore) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *flakyStore) current() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *flakyStore) Exists(ctx context.Context, userID string) (bool, error) {
	if err := f.current(); err != nil {
		return false, err
	}
	return f.next.Exists(ctx, userID)
}

func (f *flakyStore) Initialize(ctx context.Context, userID string, first models.DiscoveredCell) (bool, error) {
	if err := f.current(); err != nil {
		return false, err
	}
	return f.next.Initialize(ctx, userID, first)
}

func (f *flakyStore) ReadAll(ctx context.Context, userID string) (models.CellSet, error) {
	if err := f.current(); err != nil {
		return nil, err
	}
	return f.next.ReadAll(ctx, userID)
}

func (f *flakyStore) AppendIfNew(ctx context.Context, userID string, candidate models.DiscoveredCell) (bool, error) {
	if err := f.current(); err != nil {
		return false, err
	}
	return f.next.AppendIfNew(ctx, userID, candidate)
}

func (f *flakyStore) OverwriteAll(ctx context.Context, userID string, cells models.CellSet) error {
	if err := f.current(); err != nil {
		return err
	}
	return f.next.OverwriteAll(ctx, userID, cells)
}

func (f *flakyStore) Compact(ctx context.Context, userID string, reduce func(models.CellSet) models.CellSet) (int, int, error) {
	if err := f.current(); err != nil {
		return 0, 0, err
	}
	return f.next.Compact(ctx, userID, reduce)
}
