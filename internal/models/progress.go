package models

import (
	"strings"
)

// CourseStatus is the closed set of outcomes a student can have on a course.
type CourseStatus string

const (
	StatusApproved          CourseStatus = "approved"
	StatusInProgress        CourseStatus = "in_progress"
	StatusFailed            CourseStatus = "failed"
	StatusCreditTransferred CourseStatus = "credit_transferred"
	StatusPending           CourseStatus = "pending"
)

// AllStatuses lists every status in display order.
var AllStatuses = []CourseStatus{
	StatusApproved,
	StatusInProgress,
	StatusFailed,
	StatusCreditTransferred,
	StatusPending,
}

// Valid reports whether s is one of the known statuses.
func (s CourseStatus) Valid() bool {
	switch s {
	case StatusApproved, StatusInProgress, StatusFailed, StatusCreditTransferred, StatusPending:
		return true
	}
	return false
}

// Satisfied reports whether the status counts as completing the course.
func (s CourseStatus) Satisfied() bool {
	return s == StatusApproved || s == StatusCreditTransferred
}

// Label is the Spanish wording used on the institution's transcripts.
func (s CourseStatus) Label() string {
	switch s {
	case StatusApproved:
		return "Aprobado"
	case StatusInProgress:
		return "En curso"
	case StatusFailed:
		return "Reprobado"
	case StatusCreditTransferred:
		return "Homologado"
	default:
		return "Pendiente"
	}
}

// ParseCourseStatus maps transcript vocabulary onto a CourseStatus. Accepted
// inputs include the enum values, the Spanish labels, registrar abbreviations
// such as MATR, and English labels. Unknown text maps to StatusPending and
// ok=false.
func ParseCourseStatus(raw string) (CourseStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "-", "_", " ", "_").Replace(s)

	switch s {
	case "approved", "aprobado", "aprobada", "aprob", "passed", "pass", "completed":
		return StatusApproved, true
	case "in_progress", "en_curso", "matr", "matriculado", "matriculada", "cursando", "enrolled", "inprogress":
		return StatusInProgress, true
	case "failed", "reprobado", "reprobada", "perdido", "perdida", "fail":
		return StatusFailed, true
	case "credit_transferred", "homologado", "homologada", "homol", "transferred", "credittransferred":
		return StatusCreditTransferred, true
	case "pending", "pendiente", "":
		return StatusPending, s != ""
	}
	return StatusPending, false
}

// StudentCourseRecord is one course outcome as reported for the student.
// Credits are taken from the record, not the catalog.
type StudentCourseRecord struct {
	Code         string       `json:"code" validate:"required"`
	Name         string       `json:"name"`
	Status       CourseStatus `json:"status" validate:"required"`
	Credits      int          `json:"credits" validate:"gte=0"`
	Grade        *float64     `json:"grade,omitempty"`
	RecordedTerm string       `json:"recordedTerm,omitempty"`
}

// ProgressStore maps course codes to a student's records. It is immutable
// once built; callers replace the whole store to change progress.
type ProgressStore struct {
	records   []StudentCourseRecord
	index     map[string]int
	satisfied int
}

// NewProgressStore builds a store from records. Records with an empty code are
// dropped. When a code repeats, the later record wins and takes the position
// of the first occurrence.
func NewProgressStore(records []StudentCourseRecord) *ProgressStore {
	s := &ProgressStore{
		records: make([]StudentCourseRecord, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		r.Code = strings.TrimSpace(r.Code)
		if r.Code == "" {
			continue
		}
		if !r.Status.Valid() {
			r.Status = StatusPending
		}
		if i, ok := s.index[r.Code]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.Code] = len(s.records)
		s.records = append(s.records, r)
	}
	for _, r := range s.records {
		if r.Status.Satisfied() {
			s.satisfied++
		}
	}
	return s
}

// EmptyProgressStore returns a store with no records.
func EmptyProgressStore() *ProgressStore {
	return NewProgressStore(nil)
}

// Len returns the number of distinct course codes.
func (s *ProgressStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns a copy of the records in insertion order.
func (s *ProgressStore) Records() []StudentCourseRecord {
	if s == nil {
		return []StudentCourseRecord{}
	}
	out := make([]StudentCourseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Record returns the record for code.
func (s *ProgressStore) Record(code string) (StudentCourseRecord, bool) {
	if s == nil {
		return StudentCourseRecord{}, false
	}
	i, ok := s.index[code]
	if !ok {
		return StudentCourseRecord{}, false
	}
	return s.records[i], true
}

// Status returns the status for code, or StatusPending if there is no record.
func (s *ProgressStore) Status(code string) CourseStatus {
	if r, ok := s.Record(code); ok {
		return r.Status
	}
	return StatusPending
}

// Satisfied reports whether code is approved or credit-transferred.
func (s *ProgressStore) Satisfied(code string) bool {
	return s.Status(code).Satisfied()
}

// SatisfiedCount counts records that are approved or credit-transferred,
// including codes that are not in the catalog.
func (s *ProgressStore) SatisfiedCount() int {
	if s == nil {
		return 0
	}
	return s.satisfied
}
