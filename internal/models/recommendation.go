package models

// RecommendationReason explains why a course was proposed.
type RecommendationReason string

const (
	ReasonOverdue        RecommendationReason = "overdue"
	ReasonNextInSequence RecommendationReason = "next_in_sequence"
)

// Recommendation is an eligible course with its ranking.
type Recommendation struct {
	Course      Course               `json:"course"`
	Reason      RecommendationReason `json:"reason"`
	ReasonLabel string               `json:"reasonLabel"`
	Priority    int                  `json:"priority"`
}

// RecommendationPlan is the ranked, cap-filtered set of courses for next term.
// Deferred holds eligible courses that did not fit the cap, in rank order.
type RecommendationPlan struct {
	Cap           int              `json:"cap"`
	EstimatedTerm int              `json:"estimatedTerm"`
	TotalCredits  int              `json:"totalCredits"`
	Accepted      []Recommendation `json:"accepted"`
	Deferred      []Recommendation `json:"deferred"`
}

// PrerequisiteStatus pairs a prerequisite course with the student's status.
type PrerequisiteStatus struct {
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Status    CourseStatus `json:"status"`
	Satisfied bool         `json:"satisfied"`
}

// CourseDetail is the read model behind the course detail panel.
type CourseDetail struct {
	Course        Course               `json:"course"`
	Status        CourseStatus         `json:"status"`
	StatusLabel   string               `json:"statusLabel"`
	Record        *StudentCourseRecord `json:"record,omitempty"`
	Eligible      bool                 `json:"eligible"`
	Prerequisites []PrerequisiteStatus `json:"prerequisites"`
	Successors    []Course             `json:"successors"`
}
