package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCourseStatus(t *testing.T) {
	cases := map[string]CourseStatus{
		"Aprobado":           StatusApproved,
		" APROBADO ":         StatusApproved,
		"En curso":           StatusInProgress,
		"MATR":               StatusInProgress,
		"Reprobado":          StatusFailed,
		"Homologado":         StatusCreditTransferred,
		"credit_transferred": StatusCreditTransferred,
		"Pendiente":          StatusPending,
		"in-progress":        StatusInProgress,
	}
	for raw, want := range cases {
		got, ok := ParseCourseStatus(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	got, ok := ParseCourseStatus("Cancelado")
	assert.False(t, ok)
	assert.Equal(t, StatusPending, got)
}

func TestProgressStoreLastWriteWins(t *testing.T) {
	store := NewProgressStore([]StudentCourseRecord{
		{Code: "518002", Status: StatusFailed, Credits: 3},
		{Code: "40003", Status: StatusApproved, Credits: 3},
		{Code: "518002", Status: StatusApproved, Credits: 3},
		{Code: "  ", Status: StatusApproved, Credits: 3},
	})

	require.Equal(t, 2, store.Len())
	records := store.Records()
	assert.Equal(t, "518002", records[0].Code)
	assert.Equal(t, StatusApproved, records[0].Status)
	assert.Equal(t, "40003", records[1].Code)
	assert.Equal(t, 2, store.SatisfiedCount())
}

func TestProgressStoreDefaults(t *testing.T) {
	store := NewProgressStore([]StudentCourseRecord{
		{Code: "X", Status: CourseStatus("bogus")},
	})
	assert.Equal(t, StatusPending, store.Status("X"))
	assert.Equal(t, StatusPending, store.Status("missing"))
	assert.False(t, store.Satisfied("missing"))

	var nilStore *ProgressStore
	assert.Equal(t, 0, nilStore.Len())
	assert.Equal(t, StatusPending, nilStore.Status("X"))
	assert.Empty(t, nilStore.Records())
}

func TestProgressStoreRecordsIsCopy(t *testing.T) {
	store := NewProgressStore([]StudentCourseRecord{{Code: "A", Status: StatusApproved}})
	records := store.Records()
	records[0].Status = StatusFailed
	assert.Equal(t, StatusApproved, store.Status("A"))
}

func TestCatalogLookups(t *testing.T) {
	cat := &Catalog{
		Program:      "test",
		TotalCredits: 10,
		Periods: []Period{
			{Number: 1, Courses: []Course{{Code: "A", Credits: 3}, {Code: "B", Credits: 3}}},
			{Number: 2, Courses: []Course{{Code: "C", Prerequisites: []string{"A"}}, {Code: "D", Prerequisites: []string{"A", "B"}}}},
		},
	}
	cat.Index()

	c, ok := cat.Course("D")
	require.True(t, ok)
	assert.Equal(t, 2, c.SuggestedPeriod)
	_, ok = cat.Course("Z")
	assert.False(t, ok)

	succ := cat.Successors("A")
	require.Len(t, succ, 2)
	assert.Equal(t, "C", succ[0].Code)
	assert.Equal(t, "D", succ[1].Code)
	assert.Empty(t, cat.Successors("D"))
	assert.Len(t, cat.Courses(), 4)
}
