package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

const (
	cieComponentCap   = 30.0
	cieComponentCount = 3.0
	supplementaryCap  = 10.0
	finalTotalMax     = 50.0
)

type attainmentWriter interface {
	ReplaceCOLevel(ctx context.Context, assessmentID string, results []models.COLevelResult) error
	ReplaceFinalComposition(ctx context.Context, courseID string, results []models.FinalComposition) error
	ReplaceCombined(ctx context.Context, courseID string, results []models.CombinedAttainment) error
}

// AssessmentComputation carries the in-memory products of one assessment's
// analysis pass into the course-level composition stages.
type AssessmentComputation struct {
	Assessment  models.Assessment
	Schema      *models.QuestionSchema
	Rows        []models.StudentRow
	Horizontals []models.HorizontalResult
	COLevels    []models.COLevelResult
}

// AttainmentService derives CO-level, final composition and combined
// attainment rows from the per-assessment analysis output.
type AttainmentService struct {
	results attainmentWriter
	logger  *zap.Logger
}

// NewAttainmentService constructs AttainmentService.
func NewAttainmentService(results attainmentWriter, logger *zap.Logger) *AttainmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttainmentService{results: results, logger: logger}
}

// AggregateCO rolls the vertical results of one assessment up to its course
// outcomes. Aggregation is attempt-weighted: attempts and above-threshold
// counts are summed per CO and the percentage is recomputed from the sums,
// never averaged from per-question percentages.
func (s *AttainmentService) AggregateCO(ctx context.Context, assessmentID string, outcomes []models.CourseOutcome, verticals []models.VerticalResult) ([]models.COLevelResult, error) {
	outcomeByNumber := make(map[int]models.CourseOutcome, len(outcomes))
	for _, outcome := range outcomes {
		outcomeByNumber[outcome.CONumber] = outcome
	}

	grouped := make(map[int]*models.COLevelResult)
	for _, vertical := range verticals {
		if vertical.CONumber == nil {
			continue
		}
		number := *vertical.CONumber
		outcome, ok := outcomeByNumber[number]
		if !ok {
			s.logger.Warn("question mapped to an undefined course outcome",
				zap.String("assessment_id", assessmentID),
				zap.String("question_column", vertical.QuestionColumn),
				zap.Int("co_number", number))
			continue
		}
		entry := grouped[number]
		if entry == nil {
			entry = &models.COLevelResult{
				AssessmentID: assessmentID,
				COID:         outcome.ID,
				CONumber:     number,
			}
			grouped[number] = entry
		}
		entry.COMaxMarks += vertical.MaxMarks
		entry.COAttempts += vertical.AttemptsCount
		entry.COAboveThreshold += vertical.AboveThreshold
	}

	results := make([]models.COLevelResult, 0, len(grouped))
	for _, entry := range grouped {
		entry.COThreshold = entry.COMaxMarks * attainmentThresholdRatio
		if entry.COAttempts > 0 {
			entry.AttainmentPercent = float64(entry.COAboveThreshold) / float64(entry.COAttempts) * 100
		}
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CONumber < results[j].CONumber })

	if err := s.results.ReplaceCOLevel(ctx, assessmentID, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist co level analysis")
	}
	return results, nil
}

// ComposeFinal builds one normalized continuous-assessment row per enrolled
// student: the mean of the three scaled CIE components (each capped at 30,
// an absent CIE counting as zero) plus the AAT and QUIZ marks (each capped
// at 10), for a fixed maximum of 50.
func (s *AttainmentService) ComposeFinal(ctx context.Context, courseID string, enrollments []models.Enrollment, computations []AssessmentComputation) ([]models.FinalComposition, error) {
	scaledByType := map[models.AssessmentType]map[string]float64{}
	for _, computation := range computations {
		assessmentType := computation.Assessment.Type()
		if !assessmentType.IsCIE() {
			continue
		}
		if _, seen := scaledByType[assessmentType]; seen {
			s.logger.Warn("duplicate assessment type in course, keeping the first",
				zap.String("course_id", courseID),
				zap.String("assessment_type", string(assessmentType)),
				zap.String("assessment_id", computation.Assessment.ID))
			continue
		}
		byStudent := make(map[string]float64, len(computation.Horizontals))
		for _, horizontal := range computation.Horizontals {
			byStudent[horizontal.StudentID] = horizontal.ScaledMarks
		}
		scaledByType[assessmentType] = byStudent
	}

	source := supplementarySource(computations)
	aatMarks := supplementaryMarks(source, models.SpecialAAT)
	quizMarks := supplementaryMarks(source, models.SpecialQuiz)

	results := make([]models.FinalComposition, 0, len(enrollments))
	for _, enrollment := range enrollments {
		result := models.FinalComposition{
			CourseID:   courseID,
			StudentID:  enrollment.StudentID,
			ScaledCIE1: cappedScaled(scaledByType[models.AssessmentCIE1], enrollment.StudentID),
			ScaledCIE2: cappedScaled(scaledByType[models.AssessmentCIE2], enrollment.StudentID),
			ScaledCIE3: cappedScaled(scaledByType[models.AssessmentCIE3], enrollment.StudentID),
			AATMarks:   cappedSupplementary(aatMarks, enrollment.StudentID),
			QuizMarks:  cappedSupplementary(quizMarks, enrollment.StudentID),
			FinalMax:   finalTotalMax,
		}
		// always a mean over three components; a course with fewer CIEs
		// contributes zeros rather than a shrunken divisor
		result.AvgCIEScaled = (result.ScaledCIE1 + result.ScaledCIE2 + result.ScaledCIE3) / cieComponentCount
		result.FinalTotal = result.AvgCIEScaled + result.AATMarks + result.QuizMarks
		result.FinalPercentage = result.FinalTotal / finalTotalMax * 100
		results = append(results, result)
	}

	if err := s.results.ReplaceFinalComposition(ctx, courseID, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist final composition")
	}
	return results, nil
}

// Combine merges the CO-level rows of all periodic assessments into one
// course-wide attainment row per CO. Like AggregateCO the merge is
// attempt-weighted from the raw counts.
func (s *AttainmentService) Combine(ctx context.Context, courseID string, computations []AssessmentComputation) ([]models.CombinedAttainment, error) {
	grouped := make(map[string]*models.CombinedAttainment)
	for _, computation := range computations {
		if !computation.Assessment.Type().IsCIE() {
			continue
		}
		for _, level := range computation.COLevels {
			entry := grouped[level.COID]
			if entry == nil {
				entry = &models.CombinedAttainment{
					CourseID: courseID,
					COID:     level.COID,
					CONumber: level.CONumber,
				}
				grouped[level.COID] = entry
			}
			entry.TotalMaxMarks += level.COMaxMarks
			entry.TotalAttempts += level.COAttempts
			entry.AboveThreshold += level.COAboveThreshold
		}
	}

	results := make([]models.CombinedAttainment, 0, len(grouped))
	for _, entry := range grouped {
		if entry.TotalAttempts > 0 {
			entry.AttainmentPercent = float64(entry.AboveThreshold) / float64(entry.TotalAttempts) * 100
		}
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CONumber < results[j].CONumber })

	if err := s.results.ReplaceCombined(ctx, courseID, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist combined attainment")
	}
	return results, nil
}

// supplementarySource returns the first assessment, in upload order, whose
// schema carries an AAT or QUIZ column. Both supplementary cells are read
// from that single assessment; later assessments cannot contribute.
func supplementarySource(computations []AssessmentComputation) *AssessmentComputation {
	for i := range computations {
		schema := computations[i].Schema
		if schema == nil {
			continue
		}
		for _, column := range schema.Columns {
			if column.Special != models.SpecialNone {
				return &computations[i]
			}
		}
	}
	return nil
}

// supplementaryMarks reads the raw AAT or QUIZ column from the source
// assessment. Unparseable cells yield no entry and later default to zero.
func supplementaryMarks(source *AssessmentComputation, special models.QuestionSpecial) map[string]float64 {
	if source == nil {
		return nil
	}
	for _, column := range source.Schema.Columns {
		if column.Special != special {
			continue
		}
		marks := make(map[string]float64, len(source.Rows))
		for _, row := range source.Rows {
			if value, ok := cellMark(row, column.Name); ok && value >= 0 {
				marks[row.StudentID] = value
			}
		}
		return marks
	}
	return nil
}

func cappedScaled(byStudent map[string]float64, studentID string) float64 {
	value := byStudent[studentID]
	if value > cieComponentCap {
		return cieComponentCap
	}
	if value < 0 {
		return 0
	}
	return value
}

func cappedSupplementary(byStudent map[string]float64, studentID string) float64 {
	value := byStudent[studentID]
	if value > supplementaryCap {
		return supplementaryCap
	}
	if value < 0 {
		return 0
	}
	return value
}
