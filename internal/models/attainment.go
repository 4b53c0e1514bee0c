package models

import "time"

// COLevelResult aggregates vertical results of all questions mapped to one
// CO within one assessment. Uniquely keyed by (assessment_id, co_id).
type COLevelResult struct {
	ID                string    `db:"id" json:"id"`
	AssessmentID      string    `db:"assessment_id" json:"assessment_id"`
	COID              string    `db:"co_id" json:"co_id"`
	CONumber          int       `db:"co_number" json:"co_number"`
	COMaxMarks        float64   `db:"co_max_marks" json:"co_max_marks"`
	COAttempts        int       `db:"co_attempts" json:"co_attempts"`
	COThreshold       float64   `db:"co_threshold_60pct" json:"co_threshold_60pct"`
	COAboveThreshold  int       `db:"co_students_above_threshold" json:"co_students_above_threshold"`
	AttainmentPercent float64   `db:"co_attainment_percent" json:"co_attainment_percent"`
	CalculatedAt      time.Time `db:"calculated_at" json:"calculated_at"`
}

// FinalComposition is the normalized continuous-assessment score composed
// from the three periodic CIEs plus AAT and QUIZ. One row per
// (course_id, student_id).
type FinalComposition struct {
	ID              string    `db:"id" json:"id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	ScaledCIE1      float64   `db:"scaled_cie1" json:"scaled_cie1"`
	ScaledCIE2      float64   `db:"scaled_cie2" json:"scaled_cie2"`
	ScaledCIE3      float64   `db:"scaled_cie3" json:"scaled_cie3"`
	AvgCIEScaled    float64   `db:"avg_cie_scaled" json:"avg_cie_scaled"`
	AATMarks        float64   `db:"aat_marks" json:"aat_marks"`
	QuizMarks       float64   `db:"quiz_marks" json:"quiz_marks"`
	FinalTotal      float64   `db:"final_cie_total" json:"final_cie_total"`
	FinalPercentage float64   `db:"final_cie_percentage" json:"final_cie_percentage"`
	FinalMax        float64   `db:"final_cie_max" json:"final_cie_max"`
	CalculatedAt    time.Time `db:"calculated_at" json:"calculated_at"`
}

// CombinedAttainment merges CO-level results across all periodic
// assessments of a course. One row per (course_id, co_id).
type CombinedAttainment struct {
	ID                string    `db:"id" json:"id"`
	CourseID          string    `db:"course_id" json:"course_id"`
	COID              string    `db:"co_id" json:"co_id"`
	CONumber          int       `db:"co_number" json:"co_number"`
	TotalMaxMarks     float64   `db:"total_max_marks" json:"total_max_marks"`
	TotalAttempts     int       `db:"total_attempts" json:"total_attempts"`
	AboveThreshold    int       `db:"students_above_threshold" json:"students_above_threshold"`
	AttainmentPercent float64   `db:"attainment_percent" json:"attainment_percent"`
	CalculatedAt      time.Time `db:"calculated_at" json:"calculated_at"`
}

// AssessmentRunStatus reports the pipeline outcome for one assessment.
type AssessmentRunStatus struct {
	AssessmentID string `json:"assessment_id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

const (
	RunStatusCompleted = "completed"
	RunStatusSkipped   = "skipped"
)

// CourseRunResult summarises one full attainment run for a course.
type CourseRunResult struct {
	CourseID    string                `json:"course_id"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at"`
	Assessments []AssessmentRunStatus `json:"assessments"`
	Diagnostics int                   `json:"diagnostics"`
}

// AssessmentAnalysis bundles the persisted analysis rows of one assessment
// for read endpoints.
type AssessmentAnalysis struct {
	Assessment Assessment         `json:"assessment"`
	Vertical   []VerticalResult   `json:"vertical"`
	Horizontal []HorizontalResult `json:"horizontal"`
	Summary    *FileSummary       `json:"summary,omitempty"`
}

// CourseAttainmentReport bundles course-wide attainment for read endpoints.
type CourseAttainmentReport struct {
	CourseID string               `json:"course_id"`
	Combined []CombinedAttainment `json:"combined"`
	COLevels []COLevelResult      `json:"co_levels"`
	Finals   []FinalComposition   `json:"finals"`
}

// Pagination carries list metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
