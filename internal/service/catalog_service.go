package service

import (
	"fmt"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
)

// CatalogService answers curriculum queries that need no student data, plus
// the course detail view that overlays a student's statuses.
type CatalogService struct {
	catalog *models.Catalog
}

// NewCatalogService constructs the catalog query service.
func NewCatalogService(catalog *models.Catalog) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Catalog returns the loaded curriculum.
func (s *CatalogService) Catalog() *models.Catalog {
	return s.catalog
}

// Course returns the course with code or ErrCourseNotFound.
func (s *CatalogService) Course(code string) (models.Course, error) {
	c, ok := s.catalog.Course(code)
	if !ok {
		return models.Course{}, appErrors.Clone(appErrors.ErrCourseNotFound, fmt.Sprintf("course %s is not in the curriculum", code))
	}
	return c, nil
}

// Successors lists the courses that directly require code.
func (s *CatalogService) Successors(code string) ([]models.Course, error) {
	if _, err := s.Course(code); err != nil {
		return nil, err
	}
	return s.catalog.Successors(code), nil
}

// CourseDetail combines a course with the student's status on it and on each
// of its prerequisites.
func (s *CatalogService) CourseDetail(code string, store *models.ProgressStore) (models.CourseDetail, error) {
	c, err := s.Course(code)
	if err != nil {
		return models.CourseDetail{}, err
	}

	status := store.Status(code)
	detail := models.CourseDetail{
		Course:        c,
		Status:        status,
		StatusLabel:   status.Label(),
		Eligible:      IsEligible(c, store),
		Prerequisites: make([]models.PrerequisiteStatus, 0, len(c.Prerequisites)),
		Successors:    s.catalog.Successors(code),
	}
	if r, ok := store.Record(code); ok {
		detail.Record = &r
	}
	for _, pre := range c.Prerequisites {
		ps := models.PrerequisiteStatus{Code: pre, Status: store.Status(pre), Satisfied: store.Satisfied(pre)}
		if pc, ok := s.catalog.Course(pre); ok {
			ps.Name = pc.Name
		}
		detail.Prerequisites = append(detail.Prerequisites, ps)
	}
	return detail, nil
}
