package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
)

// RunCache persists finished runs outside process memory so results
// survive restarts for their TTL. Implementations may be absent.
type RunCache interface {
	GetRun(ctx context.Context, id string) (*models.SeatingRun, error)
	SetRun(ctx context.Context, run *models.SeatingRun) error
}

// GenerateParams is the full input of one seating pipeline invocation.
type GenerateParams struct {
	Category       string
	DayLabel       string
	Rooms          []models.RoomCapacity
	OrderedRoomIDs []string
	Roster         []models.StudentRecord
}

// RunService drives the seating pipeline end to end and keeps finished
// runs addressable by ID. The in-process map is the source of truth; the
// cache is a read-through fallback.
type RunService struct {
	seating *SeatingService
	demand  *DemandService
	cache   RunCache

	mu   sync.RWMutex
	runs map[string]*models.SeatingRun

	logger *zap.Logger
}

// NewRunService builds a RunService. cache may be nil.
func NewRunService(seating *SeatingService, demand *DemandService, cache RunCache, logger *zap.Logger) *RunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunService{
		seating: seating,
		demand:  demand,
		cache:   cache,
		runs:    make(map[string]*models.SeatingRun),
		logger:  logger,
	}
}

// Generate builds the seat grid, the pivot, and every demand view for the
// given inputs and stores the result under a fresh run ID. A roster larger
// than the selected capacity does not fail: the overflow surfaces through
// the seated/roster counts and a warning.
func (s *RunService) Generate(ctx context.Context, params GenerateParams) (*models.SeatingRun, error) {
	slots, err := s.seating.BuildGrid(params.Rooms, params.OrderedRoomIDs, params.Roster, params.DayLabel)
	if err != nil {
		return nil, err
	}

	pivot := s.seating.Pivot(slots)
	demand := s.demand.Aggregate(slots, params.OrderedRoomIDs)

	capacity := TotalCapacity(params.Rooms, params.OrderedRoomIDs)
	seated := len(params.Roster)
	if seated > len(slots) {
		seated = len(slots)
	}

	warnings := make([]string, 0, 1)
	if len(params.Roster) > capacity {
		warnings = append(warnings, fmt.Sprintf(
			"%d of %d students could not be seated: selected rooms hold %d",
			len(params.Roster)-capacity, len(params.Roster), capacity,
		))
	}

	run := &models.SeatingRun{
		ID:             uuid.NewString(),
		Category:       params.Category,
		DayLabel:       params.DayLabel,
		OrderedRoomIDs: uniqueInOrder(params.OrderedRoomIDs),
		Slots:          slots,
		Pivot:          pivot,
		Demand:         demand,
		SeatedCount:    seated,
		RosterCount:    len(params.Roster),
		TotalCapacity:  capacity,
		Warnings:       warnings,
		GeneratedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetRun(ctx, run); err != nil {
			s.logger.Warn("run cache write failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	s.logger.Info("seating run generated",
		zap.String("run_id", run.ID),
		zap.String("day", params.DayLabel),
		zap.Int("rooms", len(run.OrderedRoomIDs)),
		zap.Int("seated", seated),
		zap.Int("roster", len(params.Roster)),
	)
	return run, nil
}

// Get returns the run by ID, falling back to the cache when the process
// no longer holds it.
func (s *RunService) Get(ctx context.Context, id string) (*models.SeatingRun, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if ok {
		return run, nil
	}

	if s.cache != nil {
		cached, err := s.cache.GetRun(ctx, id)
		if err == nil && cached != nil {
			s.mu.Lock()
			s.runs[id] = cached
			s.mu.Unlock()
			return cached, nil
		}
		if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("run cache read failed", zap.String("run_id", id), zap.Error(err))
		}
	}

	return nil, appErrors.Clone(appErrors.ErrRunNotFound, fmt.Sprintf("seating run %q not found", id))
}
