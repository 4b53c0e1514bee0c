package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// AttainmentRepository persists CO-level, final composition and combined
// attainment rows. Replacement batches are transactional per stage.
type AttainmentRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewAttainmentRepository creates a new attainment repository.
func NewAttainmentRepository(db *sqlx.DB, metrics queryObserver) *AttainmentRepository {
	return &AttainmentRepository{db: db, metrics: metrics}
}

// ReplaceCOLevel swaps the CO-level rows of an assessment.
func (r *AttainmentRepository) ReplaceCOLevel(ctx context.Context, assessmentID string, results []models.COLevelResult) error {
	defer observeQuery(r.metrics, "co_level_replace", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM co_level_analysis WHERE assessment_id = $1`, assessmentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear co level analysis: %w", err)
	}
	const query = `INSERT INTO co_level_analysis
        (id, assessment_id, co_id, co_number, co_max_marks, co_attempts, co_threshold_60pct, co_students_above_threshold, co_attainment_percent, calculated_at)
        VALUES (:id, :assessment_id, :co_id, :co_number, :co_max_marks, :co_attempts, :co_threshold_60pct, :co_students_above_threshold, :co_attainment_percent, :calculated_at)`
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
			return fmt.Errorf("insert co level analysis: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit co level analysis: %w", err)
	}
	return nil
}

// ReplaceFinalComposition swaps the final CIE rows of a course.
func (r *AttainmentRepository) ReplaceFinalComposition(ctx context.Context, courseID string, results []models.FinalComposition) error {
	defer observeQuery(r.metrics, "final_composition_replace", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM final_cie_composition WHERE course_id = $1`, courseID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear final composition: %w", err)
	}
	const query = `INSERT INTO final_cie_composition
        (id, course_id, student_id, scaled_cie1, scaled_cie2, scaled_cie3, avg_cie_scaled, aat_marks, quiz_marks, final_cie_total, final_cie_percentage, final_cie_max, calculated_at)
        VALUES (:id, :course_id, :student_id, :scaled_cie1, :scaled_cie2, :scaled_cie3, :avg_cie_scaled, :aat_marks, :quiz_marks, :final_cie_total, :final_cie_percentage, :final_cie_max, :calculated_at)`
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
			return fmt.Errorf("insert final composition: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit final composition: %w", err)
	}
	return nil
}

// ReplaceCombined swaps the combined attainment rows of a course.
func (r *AttainmentRepository) ReplaceCombined(ctx context.Context, courseID string, results []models.CombinedAttainment) error {
	defer observeQuery(r.metrics, "combined_replace", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM combined_co_attainment WHERE course_id = $1`, courseID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear combined attainment: %w", err)
	}
	const query = `INSERT INTO combined_co_attainment
        (id, course_id, co_id, co_number, total_max_marks, total_attempts, students_above_threshold, attainment_percent, calculated_at)
        VALUES (:id, :course_id, :co_id, :co_number, :total_max_marks, :total_attempts, :students_above_threshold, :attainment_percent, :calculated_at)`
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
			return fmt.Errorf("insert combined attainment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit combined attainment: %w", err)
	}
	return nil
}

// ListCOLevel returns the persisted CO-level rows of an assessment.
func (r *AttainmentRepository) ListCOLevel(ctx context.Context, assessmentID string) ([]models.COLevelResult, error) {
	defer observeQuery(r.metrics, "co_level_list", time.Now())
	const query = `SELECT id, assessment_id, co_id, co_number, co_max_marks, co_attempts, co_threshold_60pct, co_students_above_threshold, co_attainment_percent, calculated_at
        FROM co_level_analysis WHERE assessment_id = $1 ORDER BY co_number`
	var results []models.COLevelResult
	if err := r.db.SelectContext(ctx, &results, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list co level analysis: %w", err)
	}
	return results, nil
}

// ListCOLevelByCourse returns CO-level rows across all assessments of a course.
func (r *AttainmentRepository) ListCOLevelByCourse(ctx context.Context, courseID string) ([]models.COLevelResult, error) {
	defer observeQuery(r.metrics, "co_level_list_by_course", time.Now())
	const query = `SELECT c.id, c.assessment_id, c.co_id, c.co_number, c.co_max_marks, c.co_attempts, c.co_threshold_60pct, c.co_students_above_threshold, c.co_attainment_percent, c.calculated_at
        FROM co_level_analysis c
        JOIN assessments a ON a.id = c.assessment_id
        WHERE a.course_id = $1
        ORDER BY c.co_number, c.assessment_id`
	var results []models.COLevelResult
	if err := r.db.SelectContext(ctx, &results, query, courseID); err != nil {
		return nil, fmt.Errorf("list co level by course: %w", err)
	}
	return results, nil
}

// ListFinalComposition returns the final CIE rows of a course.
func (r *AttainmentRepository) ListFinalComposition(ctx context.Context, courseID string) ([]models.FinalComposition, error) {
	defer observeQuery(r.metrics, "final_composition_list", time.Now())
	const query = `SELECT id, course_id, student_id, scaled_cie1, scaled_cie2, scaled_cie3, avg_cie_scaled, aat_marks, quiz_marks, final_cie_total, final_cie_percentage, final_cie_max, calculated_at
        FROM final_cie_composition WHERE course_id = $1 ORDER BY student_id`
	var results []models.FinalComposition
	if err := r.db.SelectContext(ctx, &results, query, courseID); err != nil {
		return nil, fmt.Errorf("list final composition: %w", err)
	}
	return results, nil
}

// ListCombined returns the combined attainment rows of a course.
func (r *AttainmentRepository) ListCombined(ctx context.Context, courseID string) ([]models.CombinedAttainment, error) {
	defer observeQuery(r.metrics, "combined_list", time.Now())
	const query = `SELECT id, course_id, co_id, co_number, total_max_marks, total_attempts, students_above_threshold, attainment_percent, calculated_at
        FROM combined_co_attainment WHERE course_id = $1 ORDER BY co_number`
	var results []models.CombinedAttainment
	if err := r.db.SelectContext(ctx, &results, query, courseID); err != nil {
		return nil, fmt.Errorf("list combined attainment: %w", err)
	}
	return results, nil
}
