package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// AssessmentType classifies an assessment by its display name.
type AssessmentType string

const (
	AssessmentCIE1  AssessmentType = "CIE1"
	AssessmentCIE2  AssessmentType = "CIE2"
	AssessmentCIE3  AssessmentType = "CIE3"
	AssessmentAAT   AssessmentType = "AAT"
	AssessmentQuiz  AssessmentType = "QUIZ"
	AssessmentOther AssessmentType = "OTHER"
)

// classification order matters: first substring match wins.
var assessmentTypeOrder = []AssessmentType{
	AssessmentCIE1,
	AssessmentCIE2,
	AssessmentCIE3,
	AssessmentAAT,
	AssessmentQuiz,
}

// ClassifyAssessmentType derives the type tag from an assessment display name.
func ClassifyAssessmentType(name string) AssessmentType {
	upper := strings.ToUpper(name)
	for _, t := range assessmentTypeOrder {
		if strings.Contains(upper, string(t)) {
			return t
		}
	}
	return AssessmentOther
}

// IsCIE reports whether the type is one of the periodic CIE assessments.
func (t AssessmentType) IsCIE() bool {
	return t == AssessmentCIE1 || t == AssessmentCIE2 || t == AssessmentCIE3
}

// IsSupplementary reports whether the type carries AAT/QUIZ marks.
func (t AssessmentType) IsSupplementary() bool {
	return t == AssessmentAAT || t == AssessmentQuiz
}

// Assessment identifies one graded event and its raw mark table.
type Assessment struct {
	ID        string         `db:"id" json:"id"`
	CourseID  string         `db:"course_id" json:"course_id"`
	Name      string         `db:"name" json:"name"`
	Columns   pq.StringArray `db:"columns" json:"columns"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Type classifies the assessment from its display name.
func (a Assessment) Type() AssessmentType {
	return ClassifyAssessmentType(a.Name)
}

// StudentRow holds one student's raw marks for an assessment. Cells are
// keyed by the raw spreadsheet column name; lookups are case-insensitive.
type StudentRow struct {
	AssessmentID string
	StudentID    string
	USN          string
	Cells        map[string]string
}

// Cell returns the raw value for a column name, matching case-insensitively.
func (r StudentRow) Cell(column string) (string, bool) {
	if v, ok := r.Cells[column]; ok {
		return v, true
	}
	for k, v := range r.Cells {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return "", false
}

// Course is the owning entity for assessments and derived attainment rows.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseOutcome is one numbered learning outcome defined on a course.
type CourseOutcome struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	CONumber int    `db:"co_number" json:"co_number"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID          string `db:"id" json:"id"`
	CourseID    string `db:"course_id" json:"course_id"`
	StudentID   string `db:"student_id" json:"student_id"`
	USN         string `db:"usn" json:"usn"`
	StudentName string `db:"student_name" json:"student_name"`
}

// COMapEntry is one row of the faculty-provided CO mapping for an assessment.
// MaxMarks is authoritative; it is never inferred when a mapping exists.
type COMapEntry struct {
	ID             string   `db:"id" json:"id"`
	AssessmentID   string   `db:"assessment_id" json:"assessment_id"`
	QuestionColumn string   `db:"question_column" json:"question_column"`
	CONumber       *int     `db:"co_number" json:"co_number,omitempty"`
	MaxMarks       *float64 `db:"max_marks" json:"max_marks,omitempty"`
}
