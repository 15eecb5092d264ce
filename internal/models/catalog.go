package models

// CourseKind separates required courses from elective slots.
type CourseKind string

const (
	CourseKindMandatory CourseKind = "mandatory"
	CourseKindElective  CourseKind = "elective"
)

// Course is a curriculum entry. Courses are immutable once the catalog loads.
type Course struct {
	Code            string     `json:"code" yaml:"code" validate:"required"`
	Name            string     `json:"name" yaml:"name" validate:"required"`
	Credits         int        `json:"credits" yaml:"credits" validate:"gte=0"`
	Kind            CourseKind `json:"kind" yaml:"kind" validate:"oneof=mandatory elective"`
	Component       string     `json:"component,omitempty" yaml:"component"`
	Prerequisites   []string   `json:"prerequisites" yaml:"prerequisites" validate:"dive,required"`
	SuggestedPeriod int        `json:"suggestedPeriod" yaml:"-" validate:"gte=1"`
}

// IsElective reports whether the course is an elective slot.
func (c Course) IsElective() bool {
	return c.Kind == CourseKindElective
}

// Period groups the courses suggested for the same term. Credits is the
// catalog author's figure and is not checked against the course sum.
type Period struct {
	Number  int      `json:"number" yaml:"number" validate:"gte=1"`
	Credits int      `json:"credits" yaml:"credits" validate:"gte=0"`
	Courses []Course `json:"courses" yaml:"courses" validate:"dive"`
}

// ElectiveQuota is the number of elective credits expected per component.
type ElectiveQuota struct {
	Component string `json:"component" yaml:"component" validate:"required"`
	Credits   int    `json:"credits" yaml:"credits" validate:"gte=0"`
}

// LadderGroup is one named rung of a ladder.
type LadderGroup struct {
	Label    string   `json:"label" yaml:"label" validate:"required"`
	Scenario string   `json:"scenario,omitempty" yaml:"scenario"`
	Codes    []string `json:"codes" yaml:"codes" validate:"min=1,dive,required"`
}

// Ladder is an ordered sequence of course groups used to estimate a level.
type Ladder struct {
	Name   string        `json:"name" yaml:"name"`
	Groups []LadderGroup `json:"groups" yaml:"groups" validate:"dive"`
}

// Catalog is the static curriculum definition.
type Catalog struct {
	Program        string          `json:"program" yaml:"program" validate:"required"`
	Resolution     string          `json:"resolution,omitempty" yaml:"resolution"`
	TotalCredits   int             `json:"totalCredits" yaml:"total_credits" validate:"gt=0"`
	Periods        []Period        `json:"periods" yaml:"periods" validate:"min=1,dive"`
	ElectiveQuotas []ElectiveQuota `json:"electiveQuotas" yaml:"elective_quotas" validate:"dive"`
	Notes          []string        `json:"notes,omitempty" yaml:"notes"`
	LanguageLadder Ladder          `json:"languageLadder" yaml:"language_ladder"`
	PracticeStages Ladder          `json:"practiceStages" yaml:"practice_stages"`

	courses []Course
	index   map[string]int
}

// Index flattens the periods into catalog order and stamps every course with
// its period number. The loader calls it once after decoding; later calls
// rebuild the index from the current periods.
func (c *Catalog) Index() {
	c.courses = c.courses[:0]
	c.index = make(map[string]int)
	for pi := range c.Periods {
		p := &c.Periods[pi]
		for ci := range p.Courses {
			p.Courses[ci].SuggestedPeriod = p.Number
			if _, dup := c.index[p.Courses[ci].Code]; !dup {
				c.index[p.Courses[ci].Code] = len(c.courses)
			}
			c.courses = append(c.courses, p.Courses[ci])
		}
	}
}

// Courses returns every course in catalog order: by period, then by position
// within the period.
func (c *Catalog) Courses() []Course {
	if c.index == nil {
		c.Index()
	}
	return c.courses
}

// Course looks a course up by code.
func (c *Catalog) Course(code string) (Course, bool) {
	if c.index == nil {
		c.Index()
	}
	i, ok := c.index[code]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// Successors returns the courses that list code as a direct prerequisite, in
// catalog order.
func (c *Catalog) Successors(code string) []Course {
	out := make([]Course, 0)
	for _, course := range c.Courses() {
		for _, pre := range course.Prerequisites {
			if pre == code {
				out = append(out, course)
				break
			}
		}
	}
	return out
}
