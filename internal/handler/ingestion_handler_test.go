package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
	"github.com/noah-isme/malla-api/pkg/logger"
)

type ingestorStub struct {
	submitted []byte
	fileName  string
	err       error
	runs      []models.IngestionRun
	filter    models.IngestionRunFilter
}

func (s *ingestorStub) Submit(_ context.Context, sessionID, fileName string, content []byte) (*models.IngestionRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.submitted = content
	s.fileName = fileName
	return &models.IngestionRun{ID: "run-1", SessionID: sessionID, FileName: fileName, Outcome: models.IngestionRunning}, nil
}

func (s *ingestorStub) Runs(_ context.Context, filter models.IngestionRunFilter) ([]models.IngestionRun, *models.Pagination, error) {
	s.filter = filter
	return s.runs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(s.runs)}, nil
}

type processingStub struct{}

func (processingStub) Processing(context.Context, string) (models.ProcessingState, *models.Notification, error) {
	return models.ProcessingState{Active: true, Phase: "reading document"}, nil, nil
}

func multipartUpload(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/session/transcript", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func uploadWith(t *testing.T, h *IngestionHandler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(logger.SessionKey, "session-1")
	h.Upload(c)
	return w
}

func TestIngestionHandlerUploadAccepted(t *testing.T) {
	stub := &ingestorStub{}
	h := NewIngestionHandler(stub, processingStub{}, 1024)

	w := uploadWith(t, h, multipartUpload(t, "file", "RAI.PDF", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []byte("%PDF-1.7"), stub.submitted)
	assert.Equal(t, "RAI.PDF", stub.fileName)

	var env struct {
		Data struct {
			Run        models.IngestionRun    `json:"run"`
			Processing models.ProcessingState `json:"processing"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "run-1", env.Data.Run.ID)
	assert.True(t, env.Data.Processing.Active)
}

func TestIngestionHandlerUploadRejects(t *testing.T) {
	cases := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		stub   *ingestorStub
		status int
	}{
		{
			name:   "missing file field",
			req:    func(t *testing.T) *http.Request { return multipartUpload(t, "document", "rai.pdf", []byte("x")) },
			stub:   &ingestorStub{},
			status: http.StatusBadRequest,
		},
		{
			name:   "not a pdf",
			req:    func(t *testing.T) *http.Request { return multipartUpload(t, "file", "rai.docx", []byte("x")) },
			stub:   &ingestorStub{},
			status: http.StatusBadRequest,
		},
		{
			name:   "too large",
			req:    func(t *testing.T) *http.Request { return multipartUpload(t, "file", "rai.pdf", make([]byte, 2048)) },
			stub:   &ingestorStub{},
			status: http.StatusRequestEntityTooLarge,
		},
		{
			name:   "already processing",
			req:    func(t *testing.T) *http.Request { return multipartUpload(t, "file", "rai.pdf", []byte("x")) },
			stub:   &ingestorStub{err: appErrors.ErrIngestionInProgress},
			status: http.StatusConflict,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewIngestionHandler(tc.stub, processingStub{}, 1024)
			w := uploadWith(t, h, tc.req(t))
			assert.Equal(t, tc.status, w.Code)
			assert.Nil(t, tc.stub.submitted)
		})
	}
}

func TestIngestionHandlerRunsPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &ingestorStub{runs: []models.IngestionRun{{ID: "run-1"}}}
	h := NewIngestionHandler(stub, processingStub{}, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/session/ingestions?page=2&pageSize=5", nil)
	c.Set(logger.SessionKey, "session-1")
	h.Runs(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.IngestionRunFilter{SessionID: "session-1", Page: 2, PageSize: 5}, stub.filter)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}
