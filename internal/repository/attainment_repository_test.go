package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

func TestAttainmentRepositoryReplaceCombined(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttainmentRepository(db, nil)
	results := []models.CombinedAttainment{
		{CourseID: "c1", COID: "co-1", CONumber: 1, TotalMaxMarks: 30, TotalAttempts: 5, AboveThreshold: 3, AttainmentPercent: 60},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM combined_co_attainment")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO combined_co_attainment")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceCombined(context.Background(), "c1", results))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttainmentRepositoryReplaceFinalCompositionRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttainmentRepository(db, nil)
	results := []models.FinalComposition{{CourseID: "c1", StudentID: "s1", FinalMax: 50}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM final_cie_composition")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO final_cie_composition")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	require.Error(t, repo.ReplaceFinalComposition(context.Background(), "c1", results))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttainmentRepositoryListCombined(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttainmentRepository(db, nil)
	rows := sqlmock.NewRows([]string{"id", "course_id", "co_id", "co_number", "total_max_marks", "total_attempts", "students_above_threshold", "attainment_percent", "calculated_at"}).
		AddRow("x1", "c1", "co-1", 1, 30.0, 5, 3, 60.0, time.Now()).
		AddRow("x2", "c1", "co-2", 2, 20.0, 2, 2, 100.0, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("c1").
		WillReturnRows(rows)

	results, err := repo.ListCombined(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 1, results[0].CONumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
