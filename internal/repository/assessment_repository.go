package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// AssessmentRepository reads assessments, their raw mark rows and the
// faculty-provided CO mapping. All inputs are read-only for the pipeline.
type AssessmentRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB, metrics queryObserver) *AssessmentRepository {
	return &AssessmentRepository{db: db, metrics: metrics}
}

// ListByCourse returns the assessments of a course in upload order.
func (r *AssessmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	defer observeQuery(r.metrics, "assessments_list", time.Now())
	const query = `SELECT id, course_id, name, columns, created_at FROM assessments WHERE course_id = $1 ORDER BY created_at`
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, courseID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// FindByID returns one assessment.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	defer observeQuery(r.metrics, "assessments_find", time.Now())
	const query = `SELECT id, course_id, name, columns, created_at FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

type markRowRecord struct {
	AssessmentID string         `db:"assessment_id"`
	StudentID    string         `db:"student_id"`
	USN          string         `db:"usn"`
	Cells        types.JSONText `db:"cells"`
}

// ListMarkRows returns the raw mark rows of an assessment. Cell values are
// normalised to strings regardless of how the upload encoded them.
func (r *AssessmentRepository) ListMarkRows(ctx context.Context, assessmentID string) ([]models.StudentRow, error) {
	defer observeQuery(r.metrics, "assessment_marks_list", time.Now())
	const query = `SELECT assessment_id, student_id, usn, cells FROM assessment_marks WHERE assessment_id = $1 ORDER BY usn`
	var records []markRowRecord
	if err := r.db.SelectContext(ctx, &records, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list mark rows: %w", err)
	}
	rows := make([]models.StudentRow, 0, len(records))
	for _, rec := range records {
		cells, err := decodeCells(rec.Cells)
		if err != nil {
			return nil, fmt.Errorf("decode mark row for %s: %w", rec.USN, err)
		}
		rows = append(rows, models.StudentRow{
			AssessmentID: rec.AssessmentID,
			StudentID:    rec.StudentID,
			USN:          rec.USN,
			Cells:        cells,
		})
	}
	return rows, nil
}

// ListCOMappings returns the CO mapping entries for an assessment.
func (r *AssessmentRepository) ListCOMappings(ctx context.Context, assessmentID string) ([]models.COMapEntry, error) {
	defer observeQuery(r.metrics, "co_mappings_list", time.Now())
	const query = `SELECT id, assessment_id, question_column, co_number, max_marks
        FROM co_question_mappings WHERE assessment_id = $1 ORDER BY question_column`
	var entries []models.COMapEntry
	if err := r.db.SelectContext(ctx, &entries, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list co mappings: %w", err)
	}
	return entries, nil
}

// decodeCells tolerates uploads that stored numbers or nulls instead of text.
func decodeCells(raw types.JSONText) (map[string]string, error) {
	if len(raw) == 0 {
		return map[string]string{}, nil
	}
	var loose map[string]interface{}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}
	cells := make(map[string]string, len(loose))
	for k, v := range loose {
		switch val := v.(type) {
		case nil:
			cells[k] = ""
		case string:
			cells[k] = val
		case float64:
			cells[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			cells[k] = strconv.FormatBool(val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			cells[k] = string(encoded)
		}
	}
	return cells, nil
}
