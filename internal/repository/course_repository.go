package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// CourseRepository reads course, outcome and enrollment inputs. These
// tables are owned by the surrounding platform; the pipeline only reads.
type CourseRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB, metrics queryObserver) *CourseRepository {
	return &CourseRepository{db: db, metrics: metrics}
}

// FindByID returns one course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	defer observeQuery(r.metrics, "courses_find", time.Now())
	const query = `SELECT id, code, name, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListOutcomes returns the COs defined on a course, ordered by number.
func (r *CourseRepository) ListOutcomes(ctx context.Context, courseID string) ([]models.CourseOutcome, error) {
	defer observeQuery(r.metrics, "course_outcomes_list", time.Now())
	const query = `SELECT id, course_id, co_number FROM course_outcomes WHERE course_id = $1 ORDER BY co_number`
	var outcomes []models.CourseOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, courseID); err != nil {
		return nil, fmt.Errorf("list course outcomes: %w", err)
	}
	return outcomes, nil
}

// ListEnrollments returns the students enrolled on a course.
func (r *CourseRepository) ListEnrollments(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	defer observeQuery(r.metrics, "enrollments_list", time.Now())
	const query = `SELECT e.id, e.course_id, e.student_id, s.usn, s.full_name AS student_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY s.usn`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
