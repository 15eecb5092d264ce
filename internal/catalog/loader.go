// Package catalog loads and validates the curriculum definition.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
)

//go:embed lilei.yaml
var lileiYAML []byte

// Default returns the embedded LILEI curriculum.
func Default() (*models.Catalog, error) {
	return Parse(lileiYAML)
}

// Load reads the catalog at path, or the embedded curriculum when path is
// empty.
func Load(path string) (*models.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCatalogInvalid.Code, appErrors.ErrCatalogInvalid.Status, "read catalog file")
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog, indexes it and rejects any definition that
// would break aggregation or eligibility.
func Parse(raw []byte) (*models.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cat models.Catalog
	if err := dec.Decode(&cat); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCatalogInvalid.Code, appErrors.ErrCatalogInvalid.Status, "decode catalog")
	}
	if err := Validate(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate indexes cat and checks its structural rules.
func Validate(cat *models.Catalog) error {
	for i := range cat.Periods {
		if len(cat.Periods[i].Courses) == 0 {
			return appErrors.Clone(appErrors.ErrEmptyPeriod, fmt.Sprintf("period %d has no courses", cat.Periods[i].Number))
		}
	}

	cat.Index()

	if err := validator.New().Struct(cat); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCatalogInvalid.Code, appErrors.ErrCatalogInvalid.Status, "catalog failed validation")
	}

	seenPeriods := make(map[int]bool, len(cat.Periods))
	for _, p := range cat.Periods {
		if seenPeriods[p.Number] {
			return invalid("period %d is declared twice", p.Number)
		}
		seenPeriods[p.Number] = true
	}

	courses := cat.Courses()
	codes := make(map[string]bool, len(courses))
	for _, c := range courses {
		if codes[c.Code] {
			return invalid("course code %s is declared more than once", c.Code)
		}
		codes[c.Code] = true
	}

	for _, c := range courses {
		for _, pre := range c.Prerequisites {
			if pre == c.Code {
				return invalid("course %s lists itself as a prerequisite", c.Code)
			}
			if !codes[pre] {
				return invalid("course %s requires unknown course %s", c.Code, pre)
			}
		}
	}

	if cycle := findCycle(courses); len(cycle) > 0 {
		return invalid("prerequisite cycle: %s", strings.Join(cycle, " -> "))
	}

	for _, ladder := range []models.Ladder{cat.LanguageLadder, cat.PracticeStages} {
		for _, g := range ladder.Groups {
			for _, code := range g.Codes {
				if !codes[code] {
					return invalid("ladder group %q references unknown course %s", g.Label, code)
				}
			}
		}
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrCatalogInvalid, fmt.Sprintf(format, args...))
}

// findCycle returns the codes along a prerequisite cycle, or nil.
func findCycle(courses []models.Course) []string {
	edges := make(map[string][]string, len(courses))
	order := make([]string, 0, len(courses))
	for _, c := range courses {
		edges[c.Code] = c.Prerequisites
		order = append(order, c.Code)
	}
	sort.Strings(order)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(courses))
	var stack []string

	var visit func(code string) []string
	visit = func(code string) []string {
		state[code] = visiting
		stack = append(stack, code)
		for _, next := range edges[code] {
			switch state[next] {
			case visiting:
				for i, s := range stack {
					if s == next {
						return append(append([]string{}, stack[i:]...), next)
					}
				}
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[code] = done
		return nil
	}

	for _, code := range order {
		if state[code] == unvisited {
			if cycle := visit(code); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
