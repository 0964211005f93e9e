package examcfg

import (
	"fmt"
	"sort"
)

// ScoringRule holds the per-question point deltas applied when grading.
// Incorrect is usually zero or negative (negative marking).
type ScoringRule struct {
	Correct   float64 `json:"correct"`
	Incorrect float64 `json:"incorrect"`
	Skipped   float64 `json:"skipped"`
}

// Section is a timed, ordered subdivision of an exam. Numbers are 1-based
// and contiguous. Immutable once registered.
type Section struct {
	Number          int    `json:"number"`
	Name            string `json:"name"`
	QuestionCount   int    `json:"question_count"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ExamConfig describes one exam type: its ordered sections, total size and
// the scoring rule applied at finalize.
type ExamConfig struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	TotalQuestions int         `json:"total_questions"`
	Proctored      bool        `json:"proctored"`
	Rule           ScoringRule `json:"scoring_rule"`
	Sections       []Section   `json:"sections"`
}

// TotalMinutes sums all section durations.
func (c ExamConfig) TotalMinutes() int {
	total := 0
	for _, s := range c.Sections {
		total += s.DurationMinutes
	}
	return total
}

// Section returns the section with the given 1-based number.
// A number outside the configured range is an error, never a zero section.
func (c ExamConfig) Section(number int) (Section, error) {
	if number < 1 || number > len(c.Sections) {
		return Section{}, fmt.Errorf("exam %s has no section %d", c.ID, number)
	}
	return c.Sections[number-1], nil
}

// LastSection reports whether the given section number is the final one.
func (c ExamConfig) LastSection(number int) bool {
	return number == len(c.Sections)
}

// registry is the static exam-type table. Authored in code: exam structure
// changes ship as releases, not as runtime data.
var registry = map[string]ExamConfig{
	"ielts": {
		ID:             "ielts",
		Name:           "IELTS Mock Test",
		TotalQuestions: 80,
		Proctored:      false,
		Rule:           ScoringRule{Correct: 1, Incorrect: 0, Skipped: 0},
		Sections: []Section{
			{Number: 1, Name: "Listening", QuestionCount: 40, DurationMinutes: 30},
			{Number: 2, Name: "Reading", QuestionCount: 40, DurationMinutes: 60},
		},
	},
	"imat": {
		ID:             "imat",
		Name:           "IMAT Practice Exam",
		TotalQuestions: 60,
		Proctored:      true,
		Rule:           ScoringRule{Correct: 1.5, Incorrect: -0.4, Skipped: 0},
		Sections: []Section{
			{Number: 1, Name: "Reading & General Knowledge", QuestionCount: 22, DurationMinutes: 30},
			{Number: 2, Name: "Biology", QuestionCount: 19, DurationMinutes: 35},
			{Number: 3, Name: "Chemistry", QuestionCount: 13, DurationMinutes: 25},
			{Number: 4, Name: "Physics & Mathematics", QuestionCount: 6, DurationMinutes: 10},
		},
	},
	"sat": {
		ID:             "sat",
		Name:           "Digital SAT Practice",
		TotalQuestions: 98,
		Proctored:      true,
		Rule:           ScoringRule{Correct: 1, Incorrect: 0, Skipped: 0},
		Sections: []Section{
			{Number: 1, Name: "Reading & Writing", QuestionCount: 54, DurationMinutes: 64},
			{Number: 2, Name: "Math", QuestionCount: 44, DurationMinutes: 70},
		},
	},
	"cents": {
		ID:             "cents",
		Name:           "CENT-S State Test",
		TotalQuestions: 90,
		Proctored:      true,
		Rule:           ScoringRule{Correct: 2.1, Incorrect: 0, Skipped: 0},
		Sections: []Section{
			{Number: 1, Name: "Mandatory Subjects", QuestionCount: 30, DurationMinutes: 60},
			{Number: 2, Name: "First Major Subject", QuestionCount: 30, DurationMinutes: 60},
			{Number: 3, Name: "Second Major Subject", QuestionCount: 30, DurationMinutes: 60},
		},
	},
}

func init() {
	for id, cfg := range registry {
		if err := validate(id, cfg); err != nil {
			panic(err)
		}
	}
}

// validate enforces the registry invariants: contiguous 1-based section
// numbers, strictly positive durations, and section question counts summing
// to the exam total. Violations are authoring mistakes, caught at startup.
func validate(id string, cfg ExamConfig) error {
	if id != cfg.ID {
		return fmt.Errorf("examcfg: registry key %q does not match config ID %q", id, cfg.ID)
	}
	if len(cfg.Sections) == 0 {
		return fmt.Errorf("examcfg: exam %s has no sections", id)
	}
	sum := 0
	for i, s := range cfg.Sections {
		if s.Number != i+1 {
			return fmt.Errorf("examcfg: exam %s section %d has number %d, expected %d", id, i, s.Number, i+1)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("examcfg: exam %s section %q has no duration configured", id, s.Name)
		}
		if s.QuestionCount <= 0 {
			return fmt.Errorf("examcfg: exam %s section %q has no questions configured", id, s.Name)
		}
		sum += s.QuestionCount
	}
	if sum != cfg.TotalQuestions {
		return fmt.Errorf("examcfg: exam %s section counts sum to %d, total is %d", id, sum, cfg.TotalQuestions)
	}
	return nil
}

// Get returns the exam config for the given identifier. Unknown identifiers
// are an error; callers must fail fast rather than proceed with defaults.
func Get(id string) (ExamConfig, error) {
	cfg, ok := registry[id]
	if !ok {
		return ExamConfig{}, fmt.Errorf("unknown exam type %q", id)
	}
	// Copy the section slice so callers cannot mutate the registry.
	sections := make([]Section, len(cfg.Sections))
	copy(sections, cfg.Sections)
	cfg.Sections = sections
	return cfg, nil
}

// All returns every registered exam config, sorted by ID for stable output.
func All() []ExamConfig {
	out := make([]ExamConfig, 0, len(registry))
	for id := range registry {
		cfg, _ := Get(id)
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns the registered exam identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
