package dto

import (
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/service"
)

// CreateBundleRequest queues bundle assembly for a seating run.
type CreateBundleRequest struct {
	RunID string `json:"runId" validate:"required"`
}

// BundleJobResponse is the polled job state, enriched with signed
// download links once the job finishes.
type BundleJobResponse struct {
	models.BundleJob
	Downloads []service.BundleLink `json:"downloads,omitempty"`
}
