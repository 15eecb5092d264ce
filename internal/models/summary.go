package models

// PeriodProgress is the share of a period's courses the student has satisfied.
type PeriodProgress struct {
	Period     int     `json:"period"`
	Courses    int     `json:"courses"`
	Satisfied  int     `json:"satisfied"`
	Percentage float64 `json:"percentage"`
}

// ElectiveProgress compares elective credits taken in a component against the
// catalog quota. It is informational only.
type ElectiveProgress struct {
	Component       string `json:"component"`
	QuotaCredits    int    `json:"quotaCredits"`
	ApprovedCredits int    `json:"approvedCredits"`
}

// ProgressSummary aggregates a student's progress against the catalog.
type ProgressSummary struct {
	TotalCredits      int                `json:"totalCredits"`
	ApprovedCredits   int                `json:"approvedCredits"`
	InProgressCredits int                `json:"inProgressCredits"`
	Percentage        float64            `json:"percentage"`
	RawPercentage     float64            `json:"rawPercentage"`
	SatisfiedCourses  int                `json:"satisfiedCourses"`
	RecordCount       int                `json:"recordCount"`
	PeriodProgress    []PeriodProgress   `json:"periodProgress"`
	Electives         []ElectiveProgress `json:"electives"`
}

// GroupState is the state of one ladder group.
type GroupState string

const (
	GroupReached    GroupState = "reached"
	GroupInProgress GroupState = "in_progress"
	GroupPending    GroupState = "pending"
)

// GroupProgress is a ladder group evaluated against the store.
type GroupProgress struct {
	Label      string     `json:"label"`
	Scenario   string     `json:"scenario,omitempty"`
	Codes      []string   `json:"codes"`
	Satisfied  int        `json:"satisfied"`
	State      GroupState `json:"state"`
	Percentage float64    `json:"percentage"`
}

// LadderProgress is an evaluated ladder. CurrentLevel is the label of the last
// group in the unbroken run of reached groups from the start, or empty when
// the first group is not reached.
type LadderProgress struct {
	Name         string          `json:"name"`
	Groups       []GroupProgress `json:"groups"`
	CurrentLevel string          `json:"currentLevel,omitempty"`
	Disclaimer   string          `json:"disclaimer,omitempty"`
}
