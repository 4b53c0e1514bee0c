package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

type cacheRepoStub struct {
	store map[string][]byte
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{store: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(_ context.Context, _ string) error {
	s.store = map[string][]byte{}
	return nil
}

type attainmentReaderStub struct {
	combined []models.CombinedAttainment
	coLevels []models.COLevelResult
	finals   []models.FinalComposition
	calls    int
}

func (s *attainmentReaderStub) ListCOLevelByCourse(_ context.Context, _ string) ([]models.COLevelResult, error) {
	return s.coLevels, nil
}

func (s *attainmentReaderStub) ListFinalComposition(_ context.Context, _ string) ([]models.FinalComposition, error) {
	return s.finals, nil
}

func (s *attainmentReaderStub) ListCombined(_ context.Context, _ string) ([]models.CombinedAttainment, error) {
	s.calls++
	return s.combined, nil
}

func TestReportServiceCourseAttainmentCaches(t *testing.T) {
	repo := pipelineFixture()
	reader := &attainmentReaderStub{
		combined: []models.CombinedAttainment{{CourseID: "c1", COID: "co-1", CONumber: 1, AttainmentPercent: 60}},
	}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	svc := NewReportService(repo, nil, nil, reader, cache, nil)

	first, err := svc.CourseAttainment(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, first.Combined, 1)
	assert.Equal(t, 1, reader.calls)

	second, err := svc.CourseAttainment(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, second.Combined, 1)
	// second read is served from cache
	assert.Equal(t, 1, reader.calls)
}

func TestReportServiceCourseAttainmentUnknownCourse(t *testing.T) {
	repo := pipelineFixture()
	svc := NewReportService(repo, nil, nil, &attainmentReaderStub{}, nil, nil)

	_, err := svc.CourseAttainment(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type assessmentFinderStub struct {
	assessment *models.Assessment
}

func (s *assessmentFinderStub) FindByID(_ context.Context, id string) (*models.Assessment, error) {
	if s.assessment == nil || s.assessment.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.assessment, nil
}

type analysisReaderStub struct {
	vertical   []models.VerticalResult
	horizontal []models.HorizontalResult
	summary    *models.FileSummary
}

func (s *analysisReaderStub) ListVertical(_ context.Context, _ string) ([]models.VerticalResult, error) {
	return s.vertical, nil
}

func (s *analysisReaderStub) ListHorizontal(_ context.Context, _ string) ([]models.HorizontalResult, error) {
	return s.horizontal, nil
}

func (s *analysisReaderStub) GetFileSummary(_ context.Context, _ string) (*models.FileSummary, error) {
	return s.summary, nil
}

func TestReportServiceAssessmentAnalysis(t *testing.T) {
	finder := &assessmentFinderStub{assessment: &models.Assessment{ID: "a1", Name: "CIE1"}}
	reader := &analysisReaderStub{
		vertical: []models.VerticalResult{{AssessmentID: "a1", QuestionColumn: "Q1"}},
		summary:  &models.FileSummary{AssessmentID: "a1", TotalStudents: 2},
	}
	svc := NewReportService(nil, finder, reader, nil, nil, nil)

	analysis, err := svc.AssessmentAnalysis(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "CIE1", analysis.Assessment.Name)
	require.Len(t, analysis.Vertical, 1)
	require.NotNil(t, analysis.Summary)
}

func TestReportServiceAssessmentAnalysisMissing(t *testing.T) {
	svc := NewReportService(nil, &assessmentFinderStub{}, &analysisReaderStub{}, nil, nil, nil)

	_, err := svc.AssessmentAnalysis(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
