package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/malla-api/internal/dto"
	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
	"github.com/noah-isme/malla-api/pkg/response"
)

type transcriptIngestor interface {
	Submit(ctx context.Context, sessionID, fileName string, content []byte) (*models.IngestionRun, error)
	Runs(ctx context.Context, filter models.IngestionRunFilter) ([]models.IngestionRun, *models.Pagination, error)
}

type processingReader interface {
	Processing(ctx context.Context, id string) (models.ProcessingState, *models.Notification, error)
}

// IngestionHandler accepts transcript uploads.
type IngestionHandler struct {
	ingestion transcriptIngestor
	sessions  processingReader
	maxBytes  int64
}

// NewIngestionHandler constructs the handler. maxBytes bounds the upload body.
func NewIngestionHandler(ingestion transcriptIngestor, sessions processingReader, maxBytes int64) *IngestionHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &IngestionHandler{ingestion: ingestion, sessions: sessions, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a transcript PDF
// @Description Queues the document for analysis. Poll /session/processing for the outcome.
// @Tags Ingestion
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Transcript PDF"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /session/transcript [post]
func (h *IngestionHandler) Upload(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+(1<<20))
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("the transcript exceeds %d bytes", h.maxBytes)))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a PDF file is required in the file field"))
		return
	}
	if header.Size > h.maxBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("the transcript exceeds %d bytes", h.maxBytes)))
		return
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only PDF transcripts are supported"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read the uploaded file"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read the uploaded file"))
		return
	}

	run, err := h.ingestion.Submit(c.Request.Context(), id, filepath.Base(header.Filename), content)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, _, err := h.sessions.Processing(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.TranscriptAcceptedResponse{Run: *run, Processing: state})
}

// Runs godoc
// @Summary Transcript upload history
// @Tags Ingestion
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /session/ingestions [get]
func (h *IngestionHandler) Runs(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := queryInt(c, "pageSize", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	runs, pagination, err := h.ingestion.Runs(c.Request.Context(), models.IngestionRunFilter{SessionID: id, Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}
