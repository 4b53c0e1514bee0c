package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

type analysisWriterStub struct {
	vertical   []models.VerticalResult
	horizontal []models.HorizontalResult
	summary    *models.FileSummary
	err        error
}

func (s *analysisWriterStub) ReplaceVertical(_ context.Context, _ string, results []models.VerticalResult) error {
	if s.err != nil {
		return s.err
	}
	s.vertical = results
	return nil
}

func (s *analysisWriterStub) ReplaceHorizontal(_ context.Context, _ string, results []models.HorizontalResult) error {
	if s.err != nil {
		return s.err
	}
	s.horizontal = results
	return nil
}

func (s *analysisWriterStub) UpsertFileSummary(_ context.Context, summary *models.FileSummary) error {
	if s.err != nil {
		return s.err
	}
	s.summary = summary
	return nil
}

func cieSchema() *models.QuestionSchema {
	co1, co2 := 1, 2
	return &models.QuestionSchema{
		AssessmentID: "a1",
		Type:         models.AssessmentCIE1,
		Source:       models.SchemaSourceExplicit,
		Columns: []models.QuestionColumn{
			{Name: "Q1", MaxMarks: 10, CONumber: &co1, Number: 1},
			{Name: "Q2", MaxMarks: 10, CONumber: &co1, Number: 2},
			{Name: "Q3", MaxMarks: 10, CONumber: &co2, Number: 3},
			{Name: "Q4", MaxMarks: 10, CONumber: &co2, Number: 4},
			{Name: "AAT", MaxMarks: 10, Special: models.SpecialAAT},
		},
	}
}

func cieRows() []models.StudentRow {
	return []models.StudentRow{
		{AssessmentID: "a1", StudentID: "s1", USN: "1XX21CS001", Cells: map[string]string{
			"Q1": "8", "Q2": "5", "Q3": "7", "Q4": "", "AAT": "9",
		}},
		{AssessmentID: "a1", StudentID: "s2", USN: "1XX21CS002", Cells: map[string]string{
			"Q1": "4", "Q2": "", "Q3": "2", "Q4": "6", "AAT": "",
		}},
	}
}

func verticalByColumn(t *testing.T, results []models.VerticalResult, column string) models.VerticalResult {
	t.Helper()
	for _, r := range results {
		if r.QuestionColumn == column {
			return r
		}
	}
	t.Fatalf("no vertical result for %s", column)
	return models.VerticalResult{}
}

func TestAnalysisServiceVertical(t *testing.T) {
	writer := &analysisWriterStub{}
	svc := NewAnalysisService(writer, nil)

	results, err := svc.Vertical(context.Background(), cieSchema(), cieRows())
	require.NoError(t, err)
	require.Len(t, results, 5)

	q1 := verticalByColumn(t, results, "Q1")
	assert.Equal(t, 2, q1.AttemptsCount)
	assert.Equal(t, 12.0, q1.Sum)
	assert.Equal(t, 6.0, q1.Average)
	assert.Equal(t, 6.0, q1.Threshold)
	assert.Equal(t, 1, q1.AboveThreshold)
	assert.InDelta(t, 50.0, q1.AttainmentPercent, 0.001)

	// blank compulsory cells are unattempted, never zero
	q2 := verticalByColumn(t, results, "Q2")
	assert.Equal(t, 1, q2.AttemptsCount)
	assert.Equal(t, 0, q2.AboveThreshold)

	// each student contributes exactly one attempt across Q3/Q4
	q3 := verticalByColumn(t, results, "Q3")
	q4 := verticalByColumn(t, results, "Q4")
	assert.Equal(t, 2, q3.AttemptsCount+q4.AttemptsCount)
	assert.Equal(t, 1, q3.AboveThreshold)
	assert.Equal(t, 1, q4.AboveThreshold)

	aat := verticalByColumn(t, results, "AAT")
	assert.Equal(t, 1, aat.AttemptsCount)
	assert.Equal(t, 1, aat.AboveThreshold)
	assert.InDelta(t, 100.0, aat.AttainmentPercent, 0.001)
}

func TestAnalysisServiceVerticalNoAttempts(t *testing.T) {
	writer := &analysisWriterStub{}
	svc := NewAnalysisService(writer, nil)
	co := 1
	schema := &models.QuestionSchema{
		AssessmentID: "a1",
		Type:         models.AssessmentOther,
		Columns: []models.QuestionColumn{
			{Name: "Q1", MaxMarks: 10, CONumber: &co, Number: 1},
		},
	}

	results, err := svc.Vertical(context.Background(), schema, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].AttemptsCount)
	assert.Equal(t, 0.0, results[0].AttainmentPercent)
}

func TestAnalysisServiceHorizontalCIE(t *testing.T) {
	writer := &analysisWriterStub{}
	svc := NewAnalysisService(writer, nil)

	results, err := svc.Horizontal(context.Background(), cieSchema(), cieRows())
	require.NoError(t, err)
	require.Len(t, results, 2)

	s1 := results[0]
	assert.Equal(t, "s1", s1.StudentID)
	assert.Equal(t, 20.0, s1.TotalMarksRaw)
	assert.Equal(t, 50.0, s1.MaxMarksPossible)
	assert.InDelta(t, 40.0, s1.Percentage, 0.001)
	assert.InDelta(t, 12.0, s1.ScaledMarks, 0.001)

	s2 := results[1]
	assert.Equal(t, 10.0, s2.TotalMarksRaw)
	assert.InDelta(t, 6.0, s2.ScaledMarks, 0.001)
}

func TestAnalysisServiceHorizontalNonCIE(t *testing.T) {
	writer := &analysisWriterStub{}
	svc := NewAnalysisService(writer, nil)
	schema := &models.QuestionSchema{
		AssessmentID: "a2",
		Type:         models.AssessmentQuiz,
		Columns: []models.QuestionColumn{
			{Name: "Q1", MaxMarks: 5, Number: 1},
			{Name: "Q2", MaxMarks: 5, Number: 2},
		},
	}
	rows := []models.StudentRow{
		{StudentID: "s1", USN: "u1", Cells: map[string]string{"Q1": "4", "Q2": "3"}},
	}

	results, err := svc.Horizontal(context.Background(), schema, rows)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 7.0, results[0].TotalMarksRaw)
	assert.Equal(t, 10.0, results[0].MaxMarksPossible)
	assert.InDelta(t, 70.0, results[0].Percentage, 0.001)
	// no scaling outside the periodic assessments
	assert.Equal(t, 7.0, results[0].ScaledMarks)
}

func TestAnalysisServiceSummarize(t *testing.T) {
	writer := &analysisWriterStub{}
	svc := NewAnalysisService(writer, nil)
	assessment := models.Assessment{ID: "a1", Name: "CIE1"}
	horizontals := []models.HorizontalResult{
		{TotalMarksRaw: 20, MaxMarksPossible: 50, Percentage: 40},
		{TotalMarksRaw: 10, MaxMarksPossible: 50, Percentage: 20},
	}

	summary, err := svc.Summarize(context.Background(), assessment, horizontals)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentCIE1, summary.AssessmentType)
	assert.Equal(t, 2, summary.TotalStudents)
	assert.Equal(t, 15.0, summary.AvgMarks)
	assert.Equal(t, 30.0, summary.AvgPercentage)
	assert.Equal(t, 50.0, summary.OriginalMax)
	assert.Equal(t, 30.0, summary.ScaledMax)
	assert.Equal(t, 0.6, summary.ScalingFactor)
}

func TestAnalysisServiceSummarizeNonCIE(t *testing.T) {
	writer := &analysisWriterStub{}
	svc := NewAnalysisService(writer, nil)
	assessment := models.Assessment{ID: "a2", Name: "Weekly Quiz"}
	horizontals := []models.HorizontalResult{
		{TotalMarksRaw: 7, MaxMarksPossible: 10, Percentage: 70},
	}

	summary, err := svc.Summarize(context.Background(), assessment, horizontals)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentQuiz, summary.AssessmentType)
	assert.Equal(t, 10.0, summary.OriginalMax)
	assert.Equal(t, 10.0, summary.ScaledMax)
	assert.Equal(t, 1.0, summary.ScalingFactor)
}

func TestAnalysisServicePersistFailure(t *testing.T) {
	writer := &analysisWriterStub{err: errors.New("db down")}
	svc := NewAnalysisService(writer, nil)

	_, err := svc.Vertical(context.Background(), cieSchema(), cieRows())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
