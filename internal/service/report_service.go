package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

func courseCacheKey(courseID string) string {
	return "attainment:course:" + courseID
}

func assessmentCacheKey(assessmentID string) string {
	return "attainment:assessment:" + assessmentID
}

type assessmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
}

type analysisReader interface {
	ListVertical(ctx context.Context, assessmentID string) ([]models.VerticalResult, error)
	ListHorizontal(ctx context.Context, assessmentID string) ([]models.HorizontalResult, error)
	GetFileSummary(ctx context.Context, assessmentID string) (*models.FileSummary, error)
}

type attainmentReader interface {
	ListCOLevelByCourse(ctx context.Context, courseID string) ([]models.COLevelResult, error)
	ListFinalComposition(ctx context.Context, courseID string) ([]models.FinalComposition, error)
	ListCombined(ctx context.Context, courseID string) ([]models.CombinedAttainment, error)
}

// ReportService serves the persisted attainment rows to the read endpoints,
// with a cache in front of the database.
type ReportService struct {
	courses     courseReader
	assessments assessmentFinder
	analysis    analysisReader
	attainment  attainmentReader
	cache       *CacheService
	logger      *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(
	courses courseReader,
	assessments assessmentFinder,
	analysis analysisReader,
	attainment attainmentReader,
	cache *CacheService,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		courses:     courses,
		assessments: assessments,
		analysis:    analysis,
		attainment:  attainment,
		cache:       cache,
		logger:      logger,
	}
}

// CourseAttainment returns the course-wide attainment report.
func (s *ReportService) CourseAttainment(ctx context.Context, courseID string) (*models.CourseAttainmentReport, error) {
	key := courseCacheKey(courseID)
	var cached models.CourseAttainmentReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	combined, err := s.attainment.ListCombined(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load combined attainment")
	}
	coLevels, err := s.attainment.ListCOLevelByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load co level analysis")
	}
	finals, err := s.attainment.ListFinalComposition(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final composition")
	}

	report := &models.CourseAttainmentReport{
		CourseID: courseID,
		Combined: combined,
		COLevels: coLevels,
		Finals:   finals,
	}
	if err := s.cache.Set(ctx, key, report, 0); err != nil {
		s.logger.Warn("failed to cache course attainment", zap.String("course_id", courseID), zap.Error(err))
	}
	return report, nil
}

// AssessmentAnalysis returns the persisted analysis rows of one assessment.
func (s *ReportService) AssessmentAnalysis(ctx context.Context, assessmentID string) (*models.AssessmentAnalysis, error) {
	key := assessmentCacheKey(assessmentID)
	var cached models.AssessmentAnalysis
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}

	vertical, err := s.analysis.ListVertical(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vertical analysis")
	}
	horizontal, err := s.analysis.ListHorizontal(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load horizontal analysis")
	}
	summary, err := s.analysis.GetFileSummary(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file summary")
	}

	analysis := &models.AssessmentAnalysis{
		Assessment: *assessment,
		Vertical:   vertical,
		Horizontal: horizontal,
		Summary:    summary,
	}
	if err := s.cache.Set(ctx, key, analysis, 0); err != nil {
		s.logger.Warn("failed to cache assessment analysis", zap.String("assessment_id", assessmentID), zap.Error(err))
	}
	return analysis, nil
}
