package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

type pipelineRepoStub struct {
	course      *models.Course
	outcomes    []models.CourseOutcome
	enrollments []models.Enrollment
	assessments []models.Assessment
	rows        map[string][]models.StudentRow
	mappings    map[string][]models.COMapEntry
}

func (s *pipelineRepoStub) FindByID(_ context.Context, id string) (*models.Course, error) {
	if s.course == nil || s.course.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.course, nil
}

func (s *pipelineRepoStub) ListOutcomes(_ context.Context, _ string) ([]models.CourseOutcome, error) {
	return s.outcomes, nil
}

func (s *pipelineRepoStub) ListEnrollments(_ context.Context, _ string) ([]models.Enrollment, error) {
	return s.enrollments, nil
}

func (s *pipelineRepoStub) ListByCourse(_ context.Context, _ string) ([]models.Assessment, error) {
	return s.assessments, nil
}

func (s *pipelineRepoStub) ListMarkRows(_ context.Context, assessmentID string) ([]models.StudentRow, error) {
	return s.rows[assessmentID], nil
}

func (s *pipelineRepoStub) ListCOMappings(_ context.Context, assessmentID string) ([]models.COMapEntry, error) {
	return s.mappings[assessmentID], nil
}

func pipelineFixture() *pipelineRepoStub {
	return &pipelineRepoStub{
		course: &models.Course{ID: "c1", Code: "18CS51", Name: "Operating Systems"},
		outcomes: []models.CourseOutcome{
			{ID: "co-1", CourseID: "c1", CONumber: 1},
			{ID: "co-2", CourseID: "c1", CONumber: 2},
		},
		enrollments: []models.Enrollment{
			{CourseID: "c1", StudentID: "s1", USN: "1XX21CS001"},
			{CourseID: "c1", StudentID: "s2", USN: "1XX21CS002"},
		},
		assessments: []models.Assessment{
			{ID: "a1", CourseID: "c1", Name: "CIE1", Columns: []string{"USN", "Q1", "Q3", "Q4", "AAT", "QUIZ"}},
			{ID: "a2", CourseID: "c1", Name: "Feedback Form", Columns: []string{"USN", "Comments"}},
		},
		rows: map[string][]models.StudentRow{
			"a1": {
				{AssessmentID: "a1", StudentID: "s1", USN: "1XX21CS001", Cells: map[string]string{
					"Q1": "18", "Q3": "16", "Q4": "", "AAT": "9", "QUIZ": "8",
				}},
				{AssessmentID: "a1", StudentID: "s2", USN: "1XX21CS002", Cells: map[string]string{
					"Q1": "10", "Q3": "5", "Q4": "12", "AAT": "7", "QUIZ": "6",
				}},
			},
			"a2": {
				{AssessmentID: "a2", StudentID: "s1", USN: "1XX21CS001", Cells: map[string]string{"Comments": "fine"}},
			},
		},
		mappings: map[string][]models.COMapEntry{
			"a1": {
				{AssessmentID: "a1", QuestionColumn: "Q1", CONumber: intPtr(1), MaxMarks: floatPtr(20)},
				{AssessmentID: "a1", QuestionColumn: "Q3", CONumber: intPtr(2), MaxMarks: floatPtr(15)},
				{AssessmentID: "a1", QuestionColumn: "Q4", CONumber: intPtr(2), MaxMarks: floatPtr(15)},
				{AssessmentID: "a1", QuestionColumn: "AAT", MaxMarks: floatPtr(10)},
				{AssessmentID: "a1", QuestionColumn: "QUIZ", MaxMarks: floatPtr(10)},
			},
		},
	}
}

func newTestPipeline(repo *pipelineRepoStub, analysisWriterStubbed *analysisWriterStub, attainmentWriterStubbed *attainmentWriterStub, locker RunLocker) *PipelineService {
	resolver := NewSchemaResolver(repo, nil)
	analysis := NewAnalysisService(analysisWriterStubbed, nil)
	attainment := NewAttainmentService(attainmentWriterStubbed, nil)
	return NewPipelineService(repo, repo, resolver, analysis, attainment, nil, nil, locker, time.Minute, nil)
}

func TestPipelineRunSkipsUnresolvableAssessment(t *testing.T) {
	repo := pipelineFixture()
	analysisWriter := &analysisWriterStub{}
	attainmentWriter := &attainmentWriterStub{}
	pipeline := newTestPipeline(repo, analysisWriter, attainmentWriter, nil)

	result, err := pipeline.Run(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, result.Assessments, 2)

	assert.Equal(t, models.RunStatusCompleted, result.Assessments[0].Status)
	assert.Equal(t, models.RunStatusSkipped, result.Assessments[1].Status)
	assert.Equal(t, 1, result.Diagnostics)

	// the resolvable assessment still produced every stage
	require.Len(t, analysisWriter.vertical, 5)
	require.Len(t, analysisWriter.horizontal, 2)
	require.NotNil(t, analysisWriter.summary)
	require.Len(t, attainmentWriter.coLevels, 2)
	require.Len(t, attainmentWriter.finals, 2)
	require.Len(t, attainmentWriter.combined, 2)
}

func TestPipelineRunComputesCourseRows(t *testing.T) {
	repo := pipelineFixture()
	analysisWriter := &analysisWriterStub{}
	attainmentWriter := &attainmentWriterStub{}
	pipeline := newTestPipeline(repo, analysisWriter, attainmentWriter, nil)

	_, err := pipeline.Run(context.Background(), "c1")
	require.NoError(t, err)

	// CIE totals exclude AAT/QUIZ and scale 50 -> 30
	s1 := analysisWriter.horizontal[0]
	assert.Equal(t, 34.0, s1.TotalMarksRaw)
	assert.InDelta(t, 20.4, s1.ScaledMarks, 0.001)

	final := attainmentWriter.finals[0]
	assert.Equal(t, "s1", final.StudentID)
	assert.InDelta(t, 20.4, final.ScaledCIE1, 0.001)
	// CIE2 and CIE3 are absent and average in as zeros
	assert.InDelta(t, 6.8, final.AvgCIEScaled, 0.001)
	assert.Equal(t, 9.0, final.AATMarks)
	assert.Equal(t, 8.0, final.QuizMarks)
	assert.InDelta(t, 23.8, final.FinalTotal, 0.001)
}

func TestPipelineRunRejectsConcurrentRun(t *testing.T) {
	repo := pipelineFixture()
	locker := NewMemoryRunLocker()
	held, err := locker.AcquireLock(context.Background(), runLockKey("c1"), time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	pipeline := newTestPipeline(repo, &analysisWriterStub{}, &attainmentWriterStub{}, locker)
	_, err = pipeline.Run(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunInProgress.Code, appErrors.FromError(err).Code)
}

func TestPipelineRunReleasesLock(t *testing.T) {
	repo := pipelineFixture()
	locker := NewMemoryRunLocker()
	pipeline := newTestPipeline(repo, &analysisWriterStub{}, &attainmentWriterStub{}, locker)

	_, err := pipeline.Run(context.Background(), "c1")
	require.NoError(t, err)

	held, err := locker.AcquireLock(context.Background(), runLockKey("c1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestPipelineRunUnknownCourse(t *testing.T) {
	repo := pipelineFixture()
	pipeline := newTestPipeline(repo, &analysisWriterStub{}, &attainmentWriterStub{}, nil)

	_, err := pipeline.Run(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	repo := pipelineFixture()
	analysisWriter := &analysisWriterStub{}
	attainmentWriter := &attainmentWriterStub{}
	pipeline := newTestPipeline(repo, analysisWriter, attainmentWriter, nil)

	_, err := pipeline.Run(context.Background(), "c1")
	require.NoError(t, err)
	firstVertical := analysisWriter.vertical
	firstCombined := attainmentWriter.combined

	_, err = pipeline.Run(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, analysisWriter.vertical, len(firstVertical))
	require.Len(t, attainmentWriter.combined, len(firstCombined))
	for i := range firstCombined {
		assert.Equal(t, firstCombined[i].TotalAttempts, attainmentWriter.combined[i].TotalAttempts)
		assert.Equal(t, firstCombined[i].AboveThreshold, attainmentWriter.combined[i].AboveThreshold)
		assert.InDelta(t, firstCombined[i].AttainmentPercent, attainmentWriter.combined[i].AttainmentPercent, 0.001)
	}
}
