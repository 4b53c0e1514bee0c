package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListOutcomes(ctx context.Context, courseID string) ([]models.CourseOutcome, error)
	ListEnrollments(ctx context.Context, courseID string) ([]models.Enrollment, error)
}

type markReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error)
	ListMarkRows(ctx context.Context, assessmentID string) ([]models.StudentRow, error)
}

// RunLocker serializes attainment runs per course. The Redis-backed cache
// repository satisfies it in production; MemoryRunLocker covers single-node
// deployments without Redis.
type RunLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// MemoryRunLocker is a process-local RunLocker.
type MemoryRunLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryRunLocker constructs an in-memory run locker.
func NewMemoryRunLocker() *MemoryRunLocker {
	return &MemoryRunLocker{held: map[string]struct{}{}}
}

// AcquireLock takes the lock unless it is already held.
func (l *MemoryRunLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return false, nil
	}
	l.held[key] = struct{}{}
	return true, nil
}

// ReleaseLock drops the lock.
func (l *MemoryRunLocker) ReleaseLock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// PipelineService orchestrates a full attainment run for one course: schema
// resolution, vertical and horizontal analysis, the file summary and CO
// aggregation per assessment, then final composition and combined attainment
// across the course. Every persistence stage replaces its whole batch, so a
// rerun converges to the same rows.
type PipelineService struct {
	courses  courseReader
	marks    markReader
	resolver *SchemaResolver
	analysis *AnalysisService
	results  *AttainmentService
	cache    *CacheService
	metrics  *MetricsService
	locker   RunLocker
	lockTTL  time.Duration
	logger   *zap.Logger
}

// NewPipelineService constructs PipelineService.
func NewPipelineService(
	courses courseReader,
	marks markReader,
	resolver *SchemaResolver,
	analysis *AnalysisService,
	results *AttainmentService,
	cache *CacheService,
	metrics *MetricsService,
	locker RunLocker,
	lockTTL time.Duration,
	logger *zap.Logger,
) *PipelineService {
	if locker == nil {
		locker = NewMemoryRunLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{
		courses:  courses,
		marks:    marks,
		resolver: resolver,
		analysis: analysis,
		results:  results,
		cache:    cache,
		metrics:  metrics,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

func runLockKey(courseID string) string {
	return "attainment:lock:" + courseID
}

// Run executes the full pipeline for one course. A second run for the same
// course while one is in flight is rejected with a conflict.
func (s *PipelineService) Run(ctx context.Context, courseID string) (*models.CourseRunResult, error) {
	acquired, err := s.locker.AcquireLock(ctx, runLockKey(courseID), s.lockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire run lock")
	}
	if !acquired {
		return nil, appErrors.ErrRunInProgress
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), runLockKey(courseID)); err != nil {
			s.logger.Warn("failed to release run lock", zap.String("course_id", courseID), zap.Error(err))
		}
	}()

	result, err := s.execute(ctx, courseID)
	status := models.RunStatusCompleted
	if err != nil {
		status = "failed"
	}
	if s.metrics != nil {
		s.metrics.RecordPipelineRun(status)
	}
	return result, err
}

func (s *PipelineService) execute(ctx context.Context, courseID string) (*models.CourseRunResult, error) {
	started := time.Now().UTC()

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	outcomes, err := s.courses.ListOutcomes(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course outcomes")
	}
	enrollments, err := s.courses.ListEnrollments(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	assessments, err := s.marks.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}

	run := &models.CourseRunResult{CourseID: courseID, StartedAt: started}
	var computations []AssessmentComputation

	for _, assessment := range assessments {
		computation, err := s.runAssessment(ctx, assessment, outcomes)
		if err != nil {
			// a schema failure skips only that assessment; anything else
			// aborts the run so partial course-level rows never land
			if appErrors.FromError(err).Code == appErrors.ErrSchemaResolution.Code {
				s.logger.Warn("skipping assessment, no usable question schema",
					zap.String("course_id", courseID),
					zap.String("assessment_id", assessment.ID),
					zap.String("assessment", assessment.Name))
				run.Assessments = append(run.Assessments, models.AssessmentRunStatus{
					AssessmentID: assessment.ID,
					Name:         assessment.Name,
					Status:       models.RunStatusSkipped,
					Reason:       appErrors.FromError(err).Message,
				})
				run.Diagnostics++
				continue
			}
			return nil, err
		}
		run.Assessments = append(run.Assessments, models.AssessmentRunStatus{
			AssessmentID: assessment.ID,
			Name:         assessment.Name,
			Status:       models.RunStatusCompleted,
		})
		computations = append(computations, *computation)
	}

	composeStart := time.Now()
	if _, err := s.results.ComposeFinal(ctx, courseID, enrollments, computations); err != nil {
		return nil, err
	}
	s.observeStage("compose_final", composeStart)

	combineStart := time.Now()
	if _, err := s.results.Combine(ctx, courseID, computations); err != nil {
		return nil, err
	}
	s.observeStage("combine", combineStart)

	s.invalidateCaches(ctx, courseID, assessments)

	run.CompletedAt = time.Now().UTC()
	s.logger.Info("attainment run completed",
		zap.String("course_id", courseID),
		zap.Int("assessments", len(run.Assessments)),
		zap.Int("skipped", run.Diagnostics),
		zap.Duration("elapsed", run.CompletedAt.Sub(run.StartedAt)))
	return run, nil
}

func (s *PipelineService) runAssessment(ctx context.Context, assessment models.Assessment, outcomes []models.CourseOutcome) (*AssessmentComputation, error) {
	rows, err := s.marks.ListMarkRows(ctx, assessment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark rows")
	}

	resolveStart := time.Now()
	schema, err := s.resolver.Resolve(ctx, assessment, rows)
	if err != nil {
		return nil, err
	}
	s.observeStage("resolve_schema", resolveStart)

	verticalStart := time.Now()
	verticals, err := s.analysis.Vertical(ctx, schema, rows)
	if err != nil {
		return nil, err
	}
	s.observeStage("vertical", verticalStart)

	horizontalStart := time.Now()
	horizontals, err := s.analysis.Horizontal(ctx, schema, rows)
	if err != nil {
		return nil, err
	}
	s.observeStage("horizontal", horizontalStart)

	summaryStart := time.Now()
	if _, err := s.analysis.Summarize(ctx, assessment, horizontals); err != nil {
		return nil, err
	}
	s.observeStage("summarize", summaryStart)

	aggregateStart := time.Now()
	coLevels, err := s.results.AggregateCO(ctx, assessment.ID, outcomes, verticals)
	if err != nil {
		return nil, err
	}
	s.observeStage("aggregate_co", aggregateStart)

	return &AssessmentComputation{
		Assessment:  assessment,
		Schema:      schema,
		Rows:        rows,
		Horizontals: horizontals,
		COLevels:    coLevels,
	}, nil
}

func (s *PipelineService) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObservePipelineStage(stage, time.Since(start))
	}
}

func (s *PipelineService) invalidateCaches(ctx context.Context, courseID string, assessments []models.Assessment) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, courseCacheKey(courseID)); err != nil {
		s.logger.Warn("course cache invalidation failed", zap.String("course_id", courseID), zap.Error(err))
	}
	for _, assessment := range assessments {
		if err := s.cache.Invalidate(ctx, assessmentCacheKey(assessment.ID)); err != nil {
			s.logger.Warn("assessment cache invalidation failed", zap.String("assessment_id", assessment.ID), zap.Error(err))
		}
	}
}
