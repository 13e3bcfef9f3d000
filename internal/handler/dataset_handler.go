package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/service"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
	"github.com/noah-isme/exam-hall-api/pkg/response"
)

type datasetService interface {
	Load(category string) (models.DatasetSummary, error)
	Summary() (models.DatasetSummary, error)
	ApplyRooms(reader io.Reader) (models.DatasetSummary, error)
	ApplyRoster(reader io.Reader, filename string) (models.DatasetSummary, error)
	ApplyMapping(reader io.Reader) (models.DatasetSummary, error)
	ApplyTemplate(data []byte) (models.DatasetSummary, error)
	ApplyQPUpload(filename string, data []byte) (string, []string, error)
}

// DatasetHandler exposes dataset loading and upload endpoints.
type DatasetHandler struct {
	service  datasetService
	metrics  *service.MetricsService
	validate *validator.Validate
}

// NewDatasetHandler builds a new handler.
func NewDatasetHandler(svc datasetService, metrics *service.MetricsService, validate *validator.Validate) *DatasetHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &DatasetHandler{service: svc, metrics: metrics, validate: validate}
}

// Load reads the static data directory for a category into the working set.
func (h *DatasetHandler) Load(c *gin.Context) {
	var req dto.LoadDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dataset payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "category is required"))
		return
	}

	summary, err := h.service.Load(req.Category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, summary.Warnings)
}

// Current reports the working dataset summary.
func (h *DatasetHandler) Current(c *gin.Context) {
	summary, err := h.service.Summary()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, summary.Warnings)
}

// UploadRooms replaces the room capacity table from an uploaded workbook.
func (h *DatasetHandler) UploadRooms(c *gin.Context) {
	file, _, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close() //nolint:errcheck

	summary, err := h.service.ApplyRooms(file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, summary.Warnings)
}

// UploadRoster replaces one roster batch from an uploaded workbook or CSV.
func (h *DatasetHandler) UploadRoster(c *gin.Context) {
	file, header, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close() //nolint:errcheck

	summary, err := h.service.ApplyRoster(file, header.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, summary.Warnings)
}

// UploadMapping replaces the QP code mapping from an uploaded workbook.
func (h *DatasetHandler) UploadMapping(c *gin.Context) {
	file, _, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close() //nolint:errcheck

	summary, err := h.service.ApplyMapping(file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, summary.Warnings)
}

// UploadTemplate replaces the remark sheet template workbook.
func (h *DatasetHandler) UploadTemplate(c *gin.Context) {
	file, _, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable template upload"))
		return
	}
	summary, err := h.service.ApplyTemplate(data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, summary.Warnings)
}

// UploadQPs stores one or more question paper PDFs. Each file reports its
// resolved QP code and any classification warnings.
func (h *DatasetHandler) UploadQPs(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "expected a multipart upload"))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no PDF files in upload"))
		return
	}

	results := make([]dto.UploadResponse, 0, len(files))
	warnings := make([]string, 0)
	for _, header := range files {
		data, err := readUpload(header)
		if err != nil {
			response.Error(c, err)
			return
		}
		code, fileWarnings, err := h.service.ApplyQPUpload(header.Filename, data)
		if err != nil {
			response.Error(c, err)
			return
		}
		h.metrics.RecordQPUpload()
		results = append(results, dto.UploadResponse{Filename: header.Filename, QPCode: code, Warnings: fileWarnings})
		warnings = append(warnings, fileWarnings...)
	}
	response.JSON(c, http.StatusOK, results, warnings)
}

func (h *DatasetHandler) openUpload(c *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "expected a multipart upload with a 'file' part"))
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return nil, nil, false
	}
	return file, header, true
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	return data, nil
}
