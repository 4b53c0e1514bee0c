package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// AnalysisRepository persists per-assessment vertical/horizontal results
// and the file-level summary. Every stage replaces its whole batch inside
// one transaction so reruns never leave mixed result sets.
type AnalysisRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db *sqlx.DB, metrics queryObserver) *AnalysisRepository {
	return &AnalysisRepository{db: db, metrics: metrics}
}

// ReplaceVertical swaps the vertical analysis rows of an assessment.
func (r *AnalysisRepository) ReplaceVertical(ctx context.Context, assessmentID string, results []models.VerticalResult) error {
	defer observeQuery(r.metrics, "vertical_replace", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM question_vertical_analysis WHERE assessment_id = $1`, assessmentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear vertical analysis: %w", err)
	}
	const query = `INSERT INTO question_vertical_analysis
        (id, assessment_id, question_column, co_number, max_marks, attempts_count, vertical_sum, vertical_avg, threshold_60pct, students_above_threshold, co_attainment_percent, calculated_at)
        VALUES (:id, :assessment_id, :question_column, :co_number, :max_marks, :attempts_count, :vertical_sum, :vertical_avg, :threshold_60pct, :students_above_threshold, :co_attainment_percent, :calculated_at)`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		if results[i].CalculatedAt.IsZero() {
			results[i].CalculatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert vertical analysis: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vertical analysis: %w", err)
	}
	return nil
}

// ReplaceHorizontal swaps the horizontal analysis rows of an assessment.
func (r *AnalysisRepository) ReplaceHorizontal(ctx context.Context, assessmentID string, results []models.HorizontalResult) error {
	defer observeQuery(r.metrics, "horizontal_replace", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_horizontal_analysis WHERE assessment_id = $1`, assessmentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear horizontal analysis: %w", err)
	}
	const query = `INSERT INTO student_horizontal_analysis
        (id, assessment_id, student_id, usn, total_marks_raw, max_marks_possible, percentage, scaled_marks, calculated_at)
        VALUES (:id, :assessment_id, :student_id, :usn, :total_marks_raw, :max_marks_possible, :percentage, :scaled_marks, :calculated_at)`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		if results[i].CalculatedAt.IsZero() {
			results[i].CalculatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert horizontal analysis: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit horizontal analysis: %w", err)
	}
	return nil
}

// UpsertFileSummary writes the single rollup row of an assessment.
func (r *AnalysisRepository) UpsertFileSummary(ctx context.Context, summary *models.FileSummary) error {
	defer observeQuery(r.metrics, "file_summary_upsert", time.Now())
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CalculatedAt.IsZero() {
		summary.CalculatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO file_level_summary
        (id, assessment_id, assessment_type, total_students, max_marks_possible, avg_marks, avg_percentage, original_max, scaled_max, scaling_factor, calculated_at)
        VALUES (:id, :assessment_id, :assessment_type, :total_students, :max_marks_possible, :avg_marks, :avg_percentage, :original_max, :scaled_max, :scaling_factor, :calculated_at)
        ON CONFLICT (assessment_id)
        DO UPDATE SET assessment_type = EXCLUDED.assessment_type, total_students = EXCLUDED.total_students,
            max_marks_possible = EXCLUDED.max_marks_possible, avg_marks = EXCLUDED.avg_marks,
            avg_percentage = EXCLUDED.avg_percentage, original_max = EXCLUDED.original_max,
            scaled_max = EXCLUDED.scaled_max, scaling_factor = EXCLUDED.scaling_factor,
            calculated_at = EXCLUDED.calculated_at`
	if _, err := r.db.NamedExecContext(ctx, query, summary); err != nil {
		return fmt.Errorf("upsert file summary: %w", err)
	}
	return nil
}

// ListVertical returns the persisted vertical rows of an assessment.
func (r *AnalysisRepository) ListVertical(ctx context.Context, assessmentID string) ([]models.VerticalResult, error) {
	defer observeQuery(r.metrics, "vertical_list", time.Now())
	const query = `SELECT id, assessment_id, question_column, co_number, max_marks, attempts_count, vertical_sum, vertical_avg, threshold_60pct, students_above_threshold, co_attainment_percent, calculated_at
        FROM question_vertical_analysis WHERE assessment_id = $1 ORDER BY question_column`
	var results []models.VerticalResult
	if err := r.db.SelectContext(ctx, &results, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list vertical analysis: %w", err)
	}
	return results, nil
}

// ListHorizontal returns the persisted horizontal rows of an assessment.
func (r *AnalysisRepository) ListHorizontal(ctx context.Context, assessmentID string) ([]models.HorizontalResult, error) {
	defer observeQuery(r.metrics, "horizontal_list", time.Now())
	const query = `SELECT id, assessment_id, student_id, usn, total_marks_raw, max_marks_possible, percentage, scaled_marks, calculated_at
        FROM student_horizontal_analysis WHERE assessment_id = $1 ORDER BY usn`
	var results []models.HorizontalResult
	if err := r.db.SelectContext(ctx, &results, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list horizontal analysis: %w", err)
	}
	return results, nil
}

// GetFileSummary returns the rollup row of an assessment, nil when absent.
func (r *AnalysisRepository) GetFileSummary(ctx context.Context, assessmentID string) (*models.FileSummary, error) {
	defer observeQuery(r.metrics, "file_summary_get", time.Now())
	const query = `SELECT id, assessment_id, assessment_type, total_students, max_marks_possible, avg_marks, avg_percentage, original_max, scaled_max, scaling_factor, calculated_at
        FROM file_level_summary WHERE assessment_id = $1`
	var summary models.FileSummary
	if err := r.db.GetContext(ctx, &summary, query, assessmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get file summary: %w", err)
	}
	return &summary, nil
}
