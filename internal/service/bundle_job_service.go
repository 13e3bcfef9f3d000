package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
	"github.com/noah-isme/exam-hall-api/pkg/jobs"
)

// bundleStorage persists assembled bundle PDFs and serves them back.
type bundleStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// urlSigner issues and validates download tokens scoped to one job.
type urlSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// BundleLink is one signed download for a finished bundle job.
type BundleLink struct {
	RoomID    string    `json:"room"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BundleJobService runs bundle assembly off the request path: jobs queue
// up, workers assemble and persist the per-room PDFs, and callers poll the
// job until signed download links are available.
type BundleJobService struct {
	runs     *RunService
	datasets *DatasetService
	bundles  *BundleService
	storage  bundleStorage
	signer   urlSigner
	queue    *jobs.Queue

	mu       sync.RWMutex
	jobsByID map[string]*models.BundleJob

	metrics *MetricsService
	logger  *zap.Logger
}

// WithMetrics attaches the metrics service. Safe to skip; a nil receiver
// turns every recording into a no-op.
func (s *BundleJobService) WithMetrics(m *MetricsService) *BundleJobService {
	s.metrics = m
	return s
}

// NewBundleJobService builds the service and its worker queue.
func NewBundleJobService(runs *RunService, datasets *DatasetService, bundles *BundleService, store bundleStorage, signer urlSigner, queueCfg jobs.QueueConfig, logger *zap.Logger) *BundleJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BundleJobService{
		runs:     runs,
		datasets: datasets,
		bundles:  bundles,
		storage:  store,
		signer:   signer,
		jobsByID: make(map[string]*models.BundleJob),
		logger:   logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("bundle-assembly", s.process, queueCfg)
	return s
}

// Start launches the worker pool.
func (s *BundleJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *BundleJobService) Stop() {
	s.queue.Stop()
}

// Enqueue schedules bundle assembly for the run and returns the queued job.
func (s *BundleJobService) Enqueue(ctx context.Context, runID string) (*models.BundleJob, error) {
	if _, err := s.runs.Get(ctx, runID); err != nil {
		return nil, err
	}
	if _, err := s.datasets.Current(); err != nil {
		return nil, err
	}

	job := &models.BundleJob{
		ID:        uuid.NewString(),
		RunID:     runID,
		Status:    models.BundleJobQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobsByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "bundle_assembly", Payload: runID}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bundle queue is not accepting jobs")
	}

	s.logger.Info("bundle job queued", zap.String("job_id", job.ID), zap.String("run_id", runID))
	return s.snapshot(job.ID), nil
}

// Get returns the job by ID.
func (s *BundleJobService) Get(jobID string) (*models.BundleJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("bundle job %q not found", jobID))
	}
	return job, nil
}

// Links issues signed download tokens for every room PDF of a finished job.
func (s *BundleJobService) Links(jobID string) ([]BundleLink, error) {
	job, err := s.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.BundleJobFinished {
		return nil, appErrors.Clone(appErrors.ErrBundleNotReady, fmt.Sprintf("bundle job %s is %s", jobID, job.Status))
	}

	links := make([]BundleLink, 0, len(job.Files))
	for room, relPath := range job.Files {
		token, expiresAt, err := s.signer.Generate(job.ID, relPath)
		if err != nil {
			return nil, fmt.Errorf("sign download for room %s: %w", room, err)
		}
		links = append(links, BundleLink{RoomID: room, Token: token, ExpiresAt: expiresAt})
	}
	return links, nil
}

// OpenDownload validates the token and opens the stored bundle file.
func (s *BundleJobService) OpenDownload(token string) (*os.File, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}

	job, err := s.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.BundleJobFinished {
		return nil, appErrors.Clone(appErrors.ErrBundleNotReady, fmt.Sprintf("bundle job %s is %s", jobID, job.Status))
	}

	owned := false
	for _, stored := range job.Files {
		if stored == relPath {
			owned = true
			break
		}
	}
	if !owned {
		return nil, appErrors.Clone(appErrors.ErrValidation, "download token does not match the job's files")
	}

	return s.storage.Open(relPath)
}

func (s *BundleJobService) process(ctx context.Context, job jobs.Job) error {
	runID, _ := job.Payload.(string)
	s.transition(job.ID, models.BundleJobProcessing)

	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}
	dataset, err := s.datasets.Current()
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	result, err := s.bundles.Assemble(dataset.Mapping, run.Demand.QPDetail, dataset.QPFiles, run.OrderedRoomIDs)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	files := make(map[string]string, len(result.RoomPDFs))
	for room, data := range result.RoomPDFs {
		filename := fmt.Sprintf("%s_%s_QPs.pdf", job.ID, sanitizeFilename(room))
		if _, err := s.storage.Save(filename, data); err != nil {
			s.fail(job.ID, err)
			return err
		}
		files[room] = filename
	}

	s.metrics.RecordBundleJob("finished", len(result.MissingQPCodes))

	s.mu.Lock()
	if stored, ok := s.jobsByID[job.ID]; ok {
		now := time.Now().UTC()
		stored.Status = models.BundleJobFinished
		stored.Files = files
		stored.Summary = result.Summary
		stored.MissingQPCodes = result.MissingQPCodes
		stored.Warnings = result.Warnings
		stored.FinishedAt = &now
	}
	s.mu.Unlock()

	s.logger.Info("bundle job finished",
		zap.String("job_id", job.ID),
		zap.String("run_id", runID),
		zap.Int("rooms", len(files)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return nil
}

func (s *BundleJobService) transition(jobID string, status models.BundleJobStatus) {
	s.mu.Lock()
	if job, ok := s.jobsByID[jobID]; ok {
		job.Status = status
	}
	s.mu.Unlock()
}

func (s *BundleJobService) fail(jobID string, err error) {
	s.metrics.RecordBundleJob("failed", 0)
	message := err.Error()
	s.mu.Lock()
	if job, ok := s.jobsByID[jobID]; ok {
		now := time.Now().UTC()
		job.Status = models.BundleJobFailed
		job.ErrorMessage = &message
		job.FinishedAt = &now
	}
	s.mu.Unlock()
}

// snapshot copies the job so readers never observe in-flight mutation.
func (s *BundleJobService) snapshot(jobID string) *models.BundleJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobsByID[jobID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
