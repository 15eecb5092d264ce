package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
)

func TestSummaryCreditsByStatus(t *testing.T) {
	svc := NewProgressService(lileiCatalog(t), nil)
	store := storeOf(
		models.StudentCourseRecord{Code: "503438689", Status: models.StatusApproved, Credits: 3},
		models.StudentCourseRecord{Code: "80017", Status: models.StatusCreditTransferred, Credits: 3},
		models.StudentCourseRecord{Code: "40003", Status: models.StatusInProgress, Credits: 3},
		models.StudentCourseRecord{Code: "40002", Status: models.StatusFailed, Credits: 3},
		models.StudentCourseRecord{Code: "503438688", Status: models.StatusPending, Credits: 3},
		models.StudentCourseRecord{Code: "NOT_IN_CATALOG", Status: models.StatusApproved, Credits: 2},
	)

	summary, err := svc.Summary(store)
	require.NoError(t, err)
	assert.Equal(t, 160, summary.TotalCredits)
	assert.Equal(t, 8, summary.ApprovedCredits)
	assert.Equal(t, 3, summary.InProgressCredits)
	assert.InDelta(t, 5.0, summary.Percentage, 0.0001)
	assert.Equal(t, 3, summary.SatisfiedCourses)
	assert.Equal(t, 6, summary.RecordCount)

	require.Len(t, summary.PeriodProgress, 10)
	first := summary.PeriodProgress[0]
	assert.Equal(t, 1, first.Period)
	assert.Equal(t, 2, first.Satisfied)
	assert.InDelta(t, 40.0, first.Percentage, 0.0001)
	for _, p := range summary.PeriodProgress[1:] {
		assert.Zero(t, p.Percentage)
	}
}

func TestSummaryApprovedCreditsIgnoreOtherStatuses(t *testing.T) {
	svc := NewProgressService(lileiCatalog(t), nil)
	base := []models.StudentCourseRecord{
		{Code: "503438689", Status: models.StatusApproved, Credits: 3},
		{Code: "518002", Status: models.StatusPending, Credits: 3},
	}
	before, err := svc.Summary(storeOf(base...))
	require.NoError(t, err)

	for _, status := range []models.CourseStatus{models.StatusFailed, models.StatusInProgress, models.StatusPending} {
		changed := append([]models.StudentCourseRecord(nil), base...)
		changed[1].Status = status
		after, err := svc.Summary(storeOf(changed...))
		require.NoError(t, err)
		assert.Equal(t, before.ApprovedCredits, after.ApprovedCredits, status)
	}
}

func TestSummaryPercentageClamp(t *testing.T) {
	cat := buildCatalog(6, []models.Course{course("A", 3, 1), course("B", 3, 1)})
	svc := NewProgressService(cat, nil)
	store := storeOf(
		models.StudentCourseRecord{Code: "A", Status: models.StatusApproved, Credits: 6},
		models.StudentCourseRecord{Code: "B", Status: models.StatusApproved, Credits: 6},
	)

	summary, err := svc.Summary(store)
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.Percentage)
	assert.InDelta(t, 200.0, summary.RawPercentage, 0.0001)
	assert.Equal(t, 100.0, summary.PeriodProgress[0].Percentage)
}

func TestSummaryEmptyPeriodFails(t *testing.T) {
	cat := buildCatalog(6, []models.Course{course("A", 3, 1)}, nil)
	svc := NewProgressService(cat, nil)

	_, err := svc.Summary(models.EmptyProgressStore())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEmptyPeriod))
	assert.Contains(t, err.Error(), "period 2")
}

func TestSummaryElectiveUsage(t *testing.T) {
	svc := NewProgressService(lileiCatalog(t), nil)
	store := storeOf(
		models.StudentCourseRecord{Code: "ELECT_DE_1", Status: models.StatusApproved, Credits: 2},
		models.StudentCourseRecord{Code: "ELECT_DE_2", Status: models.StatusCreditTransferred, Credits: 2},
		models.StudentCourseRecord{Code: "ELECT_FC_1", Status: models.StatusInProgress, Credits: 1},
	)
	summary, err := svc.Summary(store)
	require.NoError(t, err)

	byComponent := map[string]models.ElectiveProgress{}
	for _, e := range summary.Electives {
		byComponent[e.Component] = e
	}
	require.Len(t, byComponent, 4)
	assert.Equal(t, 12, byComponent["Disciplinar Específico"].QuotaCredits)
	assert.Equal(t, 4, byComponent["Disciplinar Específico"].ApprovedCredits)
	assert.Equal(t, 0, byComponent["Formación Complementaria"].ApprovedCredits)
}

func TestLanguageLevelContiguous(t *testing.T) {
	svc := NewProgressService(lileiCatalog(t), nil)

	t.Run("no progress", func(t *testing.T) {
		level := svc.LanguageLevel(models.EmptyProgressStore())
		assert.Empty(t, level.CurrentLevel)
		assert.Equal(t, LanguageLevelDisclaimer, level.Disclaimer)
		require.Len(t, level.Groups, 5)
		for _, g := range level.Groups {
			assert.Equal(t, models.GroupPending, g.State)
		}
	})

	t.Run("reached through A2", func(t *testing.T) {
		level := svc.LanguageLevel(storeOf(approved("503438689", "518002", "518007")...))
		assert.Equal(t, "A2", level.CurrentLevel)
		assert.Equal(t, models.GroupReached, level.Groups[0].State)
		assert.Equal(t, models.GroupReached, level.Groups[1].State)
	})

	t.Run("out of order completion does not skip a gap", func(t *testing.T) {
		store := storeOf(approved("503438689", "518008", "518009")...)
		level := svc.LanguageLevel(store)
		assert.Equal(t, "A1", level.CurrentLevel)
		assert.Equal(t, models.GroupPending, level.Groups[1].State)
		assert.Equal(t, models.GroupReached, level.Groups[2].State)
	})

	t.Run("first group unreached", func(t *testing.T) {
		level := svc.LanguageLevel(storeOf(approved("518002", "518007")...))
		assert.Empty(t, level.CurrentLevel)
	})

	t.Run("in progress group", func(t *testing.T) {
		records := approved("503438689", "518002")
		records = append(records, models.StudentCourseRecord{Code: "518007", Status: models.StatusInProgress, Credits: 3})
		level := svc.LanguageLevel(storeOf(records...))
		assert.Equal(t, "A1", level.CurrentLevel)
		assert.Equal(t, models.GroupInProgress, level.Groups[1].State)
		assert.InDelta(t, 50.0, level.Groups[1].Percentage, 0.0001)
	})
}

func TestPracticeStages(t *testing.T) {
	svc := NewProgressService(lileiCatalog(t), nil)
	records := approved("517020", "520026", "517021", "517027", "518005")
	records = append(records, models.StudentCourseRecord{Code: "518004", Status: models.StatusInProgress, Credits: 3})

	stages := svc.PracticeStages(storeOf(records...))
	require.Len(t, stages.Groups, 3)
	assert.Equal(t, models.GroupReached, stages.Groups[0].State)
	assert.Equal(t, "Propio UNAD - Virtual", stages.Groups[0].Scenario)
	assert.Equal(t, models.GroupInProgress, stages.Groups[1].State)
	assert.Equal(t, models.GroupPending, stages.Groups[2].State)
	assert.Empty(t, stages.Disclaimer)
}
