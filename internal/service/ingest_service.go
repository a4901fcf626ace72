package service

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/metrics"
	"github.com/jengzang/wander-backend-go/internal/models"
)

// TrackingState is a user's position in the ingestion state machine
type TrackingState string

const (
	StateUninitialized TrackingState = "uninitialized"
	StateTracking      TrackingState = "tracking"
)

// DefaultSessionCacheSize bounds how many users' tracking state is held
const DefaultSessionCacheSize = 10000

// ErrNotTracking is returned when a subsequent fix arrives before the first one
var ErrNotTracking = errors.New("user is not tracking yet")

// CellStore is the persistence the pipeline needs
type CellStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Initialize(ctx context.Context, userID string, first models.DiscoveredCell) (bool, error)
	ReadAll(ctx context.Context, userID string) (models.CellSet, error)
	AppendIfNew(ctx context.Context, userID string, candidate models.DiscoveredCell) (bool, error)
	OverwriteAll(ctx context.Context, userID string, cells models.CellSet) error
	Compact(ctx context.Context, userID string, reduce func(models.CellSet) models.CellSet) (int, int, error)
}

type userSession struct {
	mu    sync.Mutex
	state TrackingState
}

// IngestService turns position fixes into discovered cells. Fixes for one
// user are processed one at a time; different users proceed in parallel.
// Failures are logged and the fix is dropped. Sessions of the least recently
// active users are evicted and rebuilt from the store on their next fix.
type IngestService struct {
	store CellStore

	mu       sync.Mutex
	sessions *lru.Cache[string, *userSession]
}

// NewIngestService creates the ingestion pipeline
func NewIngestService(store CellStore) *IngestService {
	return newIngestService(store, DefaultSessionCacheSize)
}

func newIngestService(store CellStore, size int) *IngestService {
	sessions, err := lru.New[string, *userSession](size)
	if err != nil {
		// only a non-positive size fails
		sessions, _ = lru.New[string, *userSession](DefaultSessionCacheSize)
	}
	return &IngestService{
		store:    store,
		sessions: sessions,
	}
}

func (s *IngestService) session(userID string) *userSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions.Get(userID)
	if !ok {
		sess = &userSession{state: StateUninitialized}
		s.sessions.Add(userID, sess)
	}
	return sess
}

// Sessions reports how many users currently have tracking state in memory
func (s *IngestService) Sessions() int {
	return s.sessions.Len()
}

// State reports the user's current state
func (s *IngestService) State(userID string) TrackingState {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// HandleFix routes a fix by the user's state. It never returns an error:
// a failed fix is reported as dropped.
func (s *IngestService) HandleFix(ctx context.Context, userID string, fix models.PositionFix) models.IngestResult {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == StateUninitialized {
		return s.onFirstFix(ctx, sess, userID, fix)
	}
	return s.onSubsequentFix(ctx, sess, userID, fix)
}

// OnFirstFix bootstraps the user's document from fix when none exists
func (s *IngestService) OnFirstFix(ctx context.Context, userID string, fix models.PositionFix) models.IngestResult {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.onFirstFix(ctx, sess, userID, fix)
}

// OnSubsequentFix appends fix as a new cell unless it is a revisit
func (s *IngestService) OnSubsequentFix(ctx context.Context, userID string, fix models.PositionFix) models.IngestResult {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.onSubsequentFix(ctx, sess, userID, fix)
}

func (s *IngestService) onFirstFix(ctx context.Context, sess *userSession, userID string, fix models.PositionFix) models.IngestResult {
	exists, err := s.store.Exists(ctx, userID)
	if err != nil {
		return s.drop(userID, "exists", sess.state, err)
	}

	added := false
	if !exists {
		added, err = s.store.Initialize(ctx, userID, models.NewCell(fix))
		if err != nil {
			return s.drop(userID, "initialize", sess.state, err)
		}
		if added {
			metrics.FixesTotal.WithLabelValues("initialized").Inc()
			logger.L().Info("cells_initialized", "user", userID)
		}
	}

	sess.state = StateTracking
	if !added {
		metrics.FixesTotal.WithLabelValues("duplicate").Inc()
	}
	return models.IngestResult{Added: added, State: string(sess.state)}
}

func (s *IngestService) onSubsequentFix(ctx context.Context, sess *userSession, userID string, fix models.PositionFix) models.IngestResult {
	if sess.state != StateTracking {
		return s.drop(userID, "append", sess.state, ErrNotTracking)
	}

	added, err := s.store.AppendIfNew(ctx, userID, models.NewCell(fix))
	if err != nil {
		return s.drop(userID, "append", sess.state, err)
	}

	if added {
		metrics.FixesTotal.WithLabelValues("added").Inc()
		logger.L().Debug("cell_added", "user", userID, "lat", fix.Latitude, "lon", fix.Longitude)
	} else {
		metrics.FixesTotal.WithLabelValues("duplicate").Inc()
	}
	return models.IngestResult{Added: added, State: string(sess.state)}
}

func (s *IngestService) drop(userID, op string, state TrackingState, err error) models.IngestResult {
	metrics.FixesTotal.WithLabelValues("dropped").Inc()
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	logger.L().Error("fix_dropped", "user", userID, "op", op, "err", err)
	return models.IngestResult{State: string(state), Dropped: true, Reason: err.Error()}
}
