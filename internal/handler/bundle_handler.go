package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/service"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
	"github.com/noah-isme/exam-hall-api/pkg/response"
)

type bundleJobService interface {
	Enqueue(ctx context.Context, runID string) (*models.BundleJob, error)
	Get(jobID string) (*models.BundleJob, error)
	Links(jobID string) ([]service.BundleLink, error)
	OpenDownload(token string) (*os.File, error)
}

// BundleHandler exposes asynchronous bundle assembly: queue a job, poll
// its state, download the per-room PDFs through signed tokens.
type BundleHandler struct {
	jobs     bundleJobService
	validate *validator.Validate
}

// NewBundleHandler builds a new handler.
func NewBundleHandler(jobs bundleJobService, validate *validator.Validate) *BundleHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &BundleHandler{jobs: jobs, validate: validate}
}

// Create queues bundle assembly for a seating run.
func (h *BundleHandler) Create(c *gin.Context) {
	var req dto.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bundle payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "run id is required"))
		return
	}

	job, err := h.jobs.Enqueue(c.Request.Context(), req.RunID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, dto.BundleJobResponse{BundleJob: *job}, job.Warnings)
}

// Get polls a bundle job; finished jobs carry signed download links.
func (h *BundleHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.BundleJobResponse{BundleJob: *job}
	if job.Status == models.BundleJobFinished {
		links, err := h.jobs.Links(job.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		resp.Downloads = links
	}
	response.JSON(c, http.StatusOK, resp, job.Warnings)
}

// Download streams one stored bundle PDF for a valid signed token.
func (h *BundleHandler) Download(c *gin.Context) {
	file, err := h.jobs.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "bundle file is unreadable"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(file.Name())))
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
