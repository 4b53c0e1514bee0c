package models

import "strings"

// SchemaSource tags how a question schema was obtained. Inferred schemas
// are lower-confidence and only produced when no explicit mapping exists.
type SchemaSource string

const (
	SchemaSourceExplicit SchemaSource = "explicit"
	SchemaSourceInferred SchemaSource = "inferred"
)

// QuestionSpecial marks assessment-wide singleton columns that feed the
// final composition instead of the assessment's own total.
type QuestionSpecial string

const (
	SpecialNone QuestionSpecial = ""
	SpecialAAT  QuestionSpecial = "AAT"
	SpecialQuiz QuestionSpecial = "QUIZ"
)

// QuestionColumn is one graded column of an assessment.
type QuestionColumn struct {
	Name     string          `json:"name"`
	MaxMarks float64         `json:"max_marks"`
	CONumber *int            `json:"co_number,omitempty"`
	Number   int             `json:"number"`
	Special  QuestionSpecial `json:"special,omitempty"`
}

// QuestionSchema is the authoritative ordered list of question columns for
// one assessment, derived fresh on every pipeline run.
type QuestionSchema struct {
	AssessmentID string           `json:"assessment_id"`
	Type         AssessmentType   `json:"type"`
	Source       SchemaSource     `json:"source"`
	Columns      []QuestionColumn `json:"columns"`
}

// Column returns the schema column matching the name case-insensitively.
func (s *QuestionSchema) Column(name string) (QuestionColumn, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return QuestionColumn{}, false
}

// MaxTotal sums the max marks of all non-special question columns.
func (s *QuestionSchema) MaxTotal() float64 {
	var total float64
	for _, c := range s.Columns {
		if c.Special == SpecialNone {
			total += c.MaxMarks
		}
	}
	return total
}
