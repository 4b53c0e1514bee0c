package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

const (
	attainmentThresholdRatio = 0.60
	cieOriginalMax           = 50.0
	cieScaledMax             = 30.0
	cieScalingFactor         = 0.6
)

type analysisWriter interface {
	ReplaceVertical(ctx context.Context, assessmentID string, results []models.VerticalResult) error
	ReplaceHorizontal(ctx context.Context, assessmentID string, results []models.HorizontalResult) error
	UpsertFileSummary(ctx context.Context, summary *models.FileSummary) error
}

// AnalysisService computes and persists the per-assessment statistics:
// vertical (per question), horizontal (per student) and the file rollup.
type AnalysisService struct {
	results analysisWriter
	logger  *zap.Logger
}

// NewAnalysisService constructs AnalysisService.
func NewAnalysisService(results analysisWriter, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{results: results, logger: logger}
}

// Vertical computes per-question statistics across all students and
// replaces the assessment's vertical rows in one batch.
func (s *AnalysisService) Vertical(ctx context.Context, schema *models.QuestionSchema, rows []models.StudentRow) ([]models.VerticalResult, error) {
	attempted := attemptedSets(schema, rows)

	var results []models.VerticalResult
	for _, column := range schema.Columns {
		if column.MaxMarks <= 0 {
			continue
		}
		optional := column.Special == models.SpecialNone && pairIndex(column.Number) >= 0
		threshold := column.MaxMarks * attainmentThresholdRatio

		var attempts, above int
		var sum float64
		for i, row := range rows {
			if !attempted[i][column.Name] {
				continue
			}
			value, ok := cellMark(row, column.Name)
			if !ok {
				// a selected optional column with a blank cell still counts
				// as an attempt scored zero, keeping pair bookkeeping at
				// exactly one attempt per student
				if !optional {
					continue
				}
				value = 0
			}
			if value < 0 {
				continue
			}
			attempts++
			sum += value
			if value >= threshold {
				above++
			}
		}

		result := models.VerticalResult{
			AssessmentID:   schema.AssessmentID,
			QuestionColumn: column.Name,
			CONumber:       column.CONumber,
			MaxMarks:       column.MaxMarks,
			AttemptsCount:  attempts,
			Sum:            sum,
			Threshold:      threshold,
			AboveThreshold: above,
		}
		if attempts > 0 {
			result.Average = sum / float64(attempts)
			result.AttainmentPercent = float64(above) / float64(attempts) * 100
		}
		results = append(results, result)
	}

	if err := s.results.ReplaceVertical(ctx, schema.AssessmentID, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist vertical analysis")
	}
	return results, nil
}

// Horizontal computes per-student totals and replaces the assessment's
// horizontal rows in one batch. For CIE assessments the AAT/QUIZ singleton
// columns are excluded from the total (they feed the final composition) and
// the max is fixed at 50 as a normalization contract.
func (s *AnalysisService) Horizontal(ctx context.Context, schema *models.QuestionSchema, rows []models.StudentRow) ([]models.HorizontalResult, error) {
	isCIE := schema.Type.IsCIE()

	maxPossible := schema.MaxTotal()
	if isCIE {
		if maxPossible != cieOriginalMax && maxPossible > 0 {
			s.logger.Warn("cie question maxima do not sum to the fixed scale",
				zap.String("assessment_id", schema.AssessmentID),
				zap.Float64("mapped_sum", maxPossible),
				zap.Float64("fixed_max", cieOriginalMax))
		}
		maxPossible = cieOriginalMax
	} else {
		for _, column := range schema.Columns {
			if column.Special != models.SpecialNone {
				maxPossible += column.MaxMarks
			}
		}
	}

	results := make([]models.HorizontalResult, 0, len(rows))
	for _, row := range rows {
		counted := ResolveAttempted(row, schema)
		var total float64
		for _, column := range schema.Columns {
			if !counted[column.Name] {
				continue
			}
			if isCIE && column.Special != models.SpecialNone {
				continue
			}
			if value, ok := cellMark(row, column.Name); ok && value >= 0 {
				total += value
			}
		}

		result := models.HorizontalResult{
			AssessmentID:     schema.AssessmentID,
			StudentID:        row.StudentID,
			USN:              row.USN,
			TotalMarksRaw:    total,
			MaxMarksPossible: maxPossible,
			ScaledMarks:      total,
		}
		if maxPossible > 0 {
			result.Percentage = total / maxPossible * 100
		}
		if isCIE {
			result.ScaledMarks = total / cieOriginalMax * cieScaledMax
		}
		results = append(results, result)
	}

	if err := s.results.ReplaceHorizontal(ctx, schema.AssessmentID, results); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist horizontal analysis")
	}
	return results, nil
}

// Summarize writes the per-assessment rollup from its horizontal results.
func (s *AnalysisService) Summarize(ctx context.Context, assessment models.Assessment, horizontals []models.HorizontalResult) (*models.FileSummary, error) {
	summary := &models.FileSummary{
		AssessmentID:   assessment.ID,
		AssessmentType: assessment.Type(),
		TotalStudents:  len(horizontals),
	}

	var totalMarks, totalPercentage float64
	for _, h := range horizontals {
		totalMarks += h.TotalMarksRaw
		totalPercentage += h.Percentage
		summary.MaxMarksPossible = h.MaxMarksPossible
	}
	if len(horizontals) > 0 {
		summary.AvgMarks = totalMarks / float64(len(horizontals))
		summary.AvgPercentage = totalPercentage / float64(len(horizontals))
	}

	if summary.AssessmentType.IsCIE() {
		summary.OriginalMax = cieOriginalMax
		summary.ScaledMax = cieScaledMax
		summary.ScalingFactor = cieScalingFactor
	} else {
		summary.OriginalMax = summary.MaxMarksPossible
		summary.ScaledMax = summary.MaxMarksPossible
		summary.ScalingFactor = 1
	}

	if err := s.results.UpsertFileSummary(ctx, summary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist file summary")
	}
	return summary, nil
}

// attemptedSets resolves the counted-column set once per student so the
// vertical and horizontal analyzers share identical selection logic.
func attemptedSets(schema *models.QuestionSchema, rows []models.StudentRow) []map[string]bool {
	sets := make([]map[string]bool, len(rows))
	for i, row := range rows {
		sets[i] = ResolveAttempted(row, schema)
	}
	return sets
}
