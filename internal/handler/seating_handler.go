package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/service"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
	"github.com/noah-isme/exam-hall-api/pkg/response"
)

type runService interface {
	Generate(ctx context.Context, params service.GenerateParams) (*models.SeatingRun, error)
	Get(ctx context.Context, id string) (*models.SeatingRun, error)
}

type exportService interface {
	Export(run *models.SeatingRun, view service.ExportView, format service.ExportFormat) (*service.ExportFile, error)
}

type remarkService interface {
	Generate(template io.Reader, slots []models.SeatSlot, params service.RemarkParams) ([]byte, error)
}

type runDatasetProvider interface {
	Current() (*models.Dataset, error)
	BatchByClassNo() map[string]string
}

// SeatingHandler exposes the seating pipeline: run generation, run
// retrieval, view exports, and remark sheet generation.
type SeatingHandler struct {
	runs     runService
	exports  exportService
	remarks  remarkService
	datasets runDatasetProvider
	metrics  *service.MetricsService
	validate *validator.Validate
}

// NewSeatingHandler builds a new handler.
func NewSeatingHandler(runs runService, exports exportService, remarks remarkService, datasets runDatasetProvider, metrics *service.MetricsService, validate *validator.Validate) *SeatingHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SeatingHandler{
		runs:     runs,
		exports:  exports,
		remarks:  remarks,
		datasets: datasets,
		metrics:  metrics,
		validate: validate,
	}
}

// Generate runs the seating pipeline over the working dataset.
func (h *SeatingHandler) Generate(c *gin.Context) {
	var req dto.GenerateSeatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid seating payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "at least one room id is required"))
		return
	}

	dataset, err := h.datasets.Current()
	if err != nil {
		response.Error(c, err)
		return
	}
	category := req.Category
	if category == "" {
		category = dataset.Category
	}

	run, err := h.runs.Generate(c.Request.Context(), service.GenerateParams{
		Category:       category,
		DayLabel:       req.DayLabel,
		Rooms:          dataset.Rooms,
		OrderedRoomIDs: req.RoomIDs,
		Roster:         dataset.Roster,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordSeatingRun(run.SeatedCount)
	response.JSON(c, http.StatusCreated, dto.NewSeatingRunSummary(run), run.Warnings)
}

// Get returns the full run: grid, pivot, and every demand view.
func (h *SeatingHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, run.Warnings)
}

// Export streams one run view as csv, xlsx, or pdf.
func (h *SeatingHandler) Export(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	view := service.ExportView(c.DefaultQuery("view", string(service.ViewSeatingPlan)))
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatXLSX)))

	file, err := h.exports.Export(run, view, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Remarks fills the remark sheet template for the run and streams the
// workbook.
func (h *SeatingHandler) Remarks(c *gin.Context) {
	var req dto.RemarkSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid remark payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "exam date is required"))
		return
	}

	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset, err := h.datasets.Current()
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(dataset.Template) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrDatasetUnavailable, "remark sheet template is not loaded"))
		return
	}

	workbook, err := h.remarks.Generate(bytes.NewReader(dataset.Template), run.Slots, service.RemarkParams{
		ExamTitle:      req.ExamTitle,
		ExamDate:       req.ExamDate,
		BatchByClassNo: h.datasets.BatchByClassNo(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("Remark_Sheets_%s.xlsx", run.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}
