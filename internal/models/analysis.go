package models

import "time"

// VerticalResult holds per-question statistics across all students of one
// assessment. Uniquely keyed by (assessment_id, question_column).
type VerticalResult struct {
	ID                string    `db:"id" json:"id"`
	AssessmentID      string    `db:"assessment_id" json:"assessment_id"`
	QuestionColumn    string    `db:"question_column" json:"question_column"`
	CONumber          *int      `db:"co_number" json:"co_number,omitempty"`
	MaxMarks          float64   `db:"max_marks" json:"max_marks"`
	AttemptsCount     int       `db:"attempts_count" json:"attempts_count"`
	Sum               float64   `db:"vertical_sum" json:"vertical_sum"`
	Average           float64   `db:"vertical_avg" json:"vertical_avg"`
	Threshold         float64   `db:"threshold_60pct" json:"threshold_60pct"`
	AboveThreshold    int       `db:"students_above_threshold" json:"students_above_threshold"`
	AttainmentPercent float64   `db:"co_attainment_percent" json:"co_attainment_percent"`
	CalculatedAt      time.Time `db:"calculated_at" json:"calculated_at"`
}

// HorizontalResult holds per-student statistics across all counted questions
// of one assessment. Uniquely keyed by (assessment_id, student_id).
type HorizontalResult struct {
	ID               string    `db:"id" json:"id"`
	AssessmentID     string    `db:"assessment_id" json:"assessment_id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	USN              string    `db:"usn" json:"usn"`
	TotalMarksRaw    float64   `db:"total_marks_raw" json:"total_marks_raw"`
	MaxMarksPossible float64   `db:"max_marks_possible" json:"max_marks_possible"`
	Percentage       float64   `db:"percentage" json:"percentage"`
	ScaledMarks      float64   `db:"scaled_marks" json:"scaled_marks"`
	CalculatedAt     time.Time `db:"calculated_at" json:"calculated_at"`
}

// FileSummary is the per-assessment rollup. One row per assessment.
type FileSummary struct {
	ID               string         `db:"id" json:"id"`
	AssessmentID     string         `db:"assessment_id" json:"assessment_id"`
	AssessmentType   AssessmentType `db:"assessment_type" json:"assessment_type"`
	TotalStudents    int            `db:"total_students" json:"total_students"`
	MaxMarksPossible float64        `db:"max_marks_possible" json:"max_marks_possible"`
	AvgMarks         float64        `db:"avg_marks" json:"avg_marks"`
	AvgPercentage    float64        `db:"avg_percentage" json:"avg_percentage"`
	OriginalMax      float64        `db:"original_max" json:"original_max"`
	ScaledMax        float64        `db:"scaled_max" json:"scaled_max"`
	ScalingFactor    float64        `db:"scaling_factor" json:"scaling_factor"`
	CalculatedAt     time.Time      `db:"calculated_at" json:"calculated_at"`
}
