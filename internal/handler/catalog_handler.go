package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/malla-api/internal/dto"
	"github.com/noah-isme/malla-api/internal/models"
	"github.com/noah-isme/malla-api/pkg/response"
)

type catalogQueries interface {
	Catalog() *models.Catalog
	Course(code string) (models.Course, error)
	Successors(code string) ([]models.Course, error)
}

type courseAdvisor interface {
	Describe(ctx context.Context, course models.Course) string
}

// CatalogHandler serves the static curriculum.
type CatalogHandler struct {
	catalog catalogQueries
	advisor courseAdvisor
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog catalogQueries, advisor courseAdvisor) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, advisor: advisor}
}

// Get godoc
// @Summary Curriculum catalog
// @Description Periods, courses, elective quotas, notes and ladders of the program.
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	response.OK(c, h.catalog.Catalog())
}

// Course godoc
// @Summary Catalog course
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{code} [get]
func (h *CatalogHandler) Course(c *gin.Context) {
	course, err := h.catalog.Course(strings.TrimSpace(c.Param("code")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Successors godoc
// @Summary Courses unlocked by a course
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{code}/successors [get]
func (h *CatalogHandler) Successors(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	successors, err := h.catalog.Successors(code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SuccessorsResponse{Code: code, Successors: successors})
}

// Description godoc
// @Summary Study guidance for a course
// @Description Generated text; a fixed fallback is returned when generation is unavailable.
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{code}/description [get]
func (h *CatalogHandler) Description(c *gin.Context) {
	course, err := h.catalog.Course(strings.TrimSpace(c.Param("code")))
	if err != nil {
		response.Error(c, err)
		return
	}
	text := h.advisor.Describe(c.Request.Context(), course)
	response.OK(c, dto.CourseDescriptionResponse{Code: course.Code, Name: course.Name, Description: text})
}
