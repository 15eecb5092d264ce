package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/malla-api/internal/catalog"
	"github.com/noah-isme/malla-api/internal/models"
)

func lileiCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

func course(code string, credits, period int, prereqs ...string) models.Course {
	return models.Course{
		Code:            code,
		Name:            "Course " + code,
		Credits:         credits,
		Kind:            models.CourseKindMandatory,
		Prerequisites:   prereqs,
		SuggestedPeriod: period,
	}
}

func buildCatalog(total int, periods ...[]models.Course) *models.Catalog {
	cat := &models.Catalog{Program: "Test", TotalCredits: total}
	for i, courses := range periods {
		cat.Periods = append(cat.Periods, models.Period{Number: i + 1, Courses: courses})
	}
	cat.Index()
	return cat
}

func approved(codes ...string) []models.StudentCourseRecord {
	out := make([]models.StudentCourseRecord, 0, len(codes))
	for _, code := range codes {
		out = append(out, models.StudentCourseRecord{Code: code, Status: models.StatusApproved, Credits: 3})
	}
	return out
}

func storeOf(records ...models.StudentCourseRecord) *models.ProgressStore {
	return models.NewProgressStore(records)
}
