package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/service"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
)

type bundleJobServiceMock struct {
	job        *models.BundleJob
	links      []service.BundleLink
	enqueueErr error
	getErr     error
	openErr    error
}

func (m *bundleJobServiceMock) Enqueue(_ context.Context, runID string) (*models.BundleJob, error) {
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	return m.job, nil
}

func (m *bundleJobServiceMock) Get(jobID string) (*models.BundleJob, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.job, nil
}

func (m *bundleJobServiceMock) Links(jobID string) ([]service.BundleLink, error) {
	return m.links, nil
}

func (m *bundleJobServiceMock) OpenDownload(token string) (*os.File, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return nil, appErrors.ErrInternal
}

func queuedJob() *models.BundleJob {
	return &models.BundleJob{
		ID:        "job-1",
		RunID:     "run-1",
		Status:    models.BundleJobQueued,
		CreatedAt: time.Now().UTC(),
	}
}

func TestBundleHandlerCreate(t *testing.T) {
	handler := NewBundleHandler(&bundleJobServiceMock{job: queuedJob()}, nil)

	w, c := postJSON(t, "/bundles", dto.CreateBundleRequest{RunID: "run-1"})
	handler.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	var envelope struct {
		Data dto.BundleJobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "job-1", envelope.Data.ID)
	assert.Equal(t, models.BundleJobQueued, envelope.Data.Status)
}

func TestBundleHandlerCreateMissingRunID(t *testing.T) {
	handler := NewBundleHandler(&bundleJobServiceMock{job: queuedJob()}, nil)

	w, c := postJSON(t, "/bundles", dto.CreateBundleRequest{})
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBundleHandlerCreateUnknownRun(t *testing.T) {
	handler := NewBundleHandler(&bundleJobServiceMock{enqueueErr: appErrors.ErrRunNotFound}, nil)

	w, c := postJSON(t, "/bundles", dto.CreateBundleRequest{RunID: "missing"})
	handler.Create(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBundleHandlerGetFinishedAttachesLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	job := queuedJob()
	job.Status = models.BundleJobFinished
	job.Files = map[string]string{"Room A": "job-1_Room_A_QPs.pdf"}
	links := []service.BundleLink{{RoomID: "Room A", Token: "signed-token"}}
	handler := NewBundleHandler(&bundleJobServiceMock{job: job, links: links}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/bundles/job-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.BundleJobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Downloads, 1)
	assert.Equal(t, "signed-token", envelope.Data.Downloads[0].Token)
}

func TestBundleHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBundleHandler(&bundleJobServiceMock{openErr: appErrors.Clone(appErrors.ErrValidation, "invalid or expired download token")}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/bundles/download/bad-token", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "bad-token"}}

	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
