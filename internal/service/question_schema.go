package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

type coMappingReader interface {
	ListCOMappings(ctx context.Context, assessmentID string) ([]models.COMapEntry, error)
}

// SchemaResolver produces the authoritative question schema for an
// assessment. The explicit CO mapping always wins; name/value inference is
// a legacy fallback and is tagged lower-confidence on the schema itself.
type SchemaResolver struct {
	mappings coMappingReader
	logger   *zap.Logger
}

// NewSchemaResolver constructs a SchemaResolver.
func NewSchemaResolver(mappings coMappingReader, logger *zap.Logger) *SchemaResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaResolver{mappings: mappings, logger: logger}
}

var (
	coNamePattern      = regexp.MustCompile(`(?i)co\s*-?\s*(\d+)`)
	numericSuffixMatch = regexp.MustCompile(`(\d+)\s*$`)
)

const fallbackCOCount = 6

// Resolve builds the question schema for one assessment from its CO
// mapping, falling back to classification + inference only when no mapping
// entry matches the assessment's columns.
func (r *SchemaResolver) Resolve(ctx context.Context, assessment models.Assessment, rows []models.StudentRow) (*models.QuestionSchema, error) {
	entries, err := r.mappings.ListCOMappings(ctx, assessment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load co mapping")
	}

	schema := &models.QuestionSchema{
		AssessmentID: assessment.ID,
		Type:         assessment.Type(),
	}

	if columns := r.resolveExplicit(assessment, entries); len(columns) > 0 {
		schema.Source = models.SchemaSourceExplicit
		schema.Columns = columns
		return schema, nil
	}

	r.logger.Warn("no explicit co mapping matched, falling back to inference",
		zap.String("assessment_id", assessment.ID),
		zap.String("assessment", assessment.Name))

	columns := r.resolveInferred(assessment, rows)
	if len(columns) == 0 {
		return nil, appErrors.Clone(appErrors.ErrSchemaResolution, "no valid question columns detected for "+assessment.Name)
	}
	schema.Source = models.SchemaSourceInferred
	schema.Columns = columns
	return schema, nil
}

// resolveExplicit matches mapping entries against the assessment's actual
// columns case-insensitively. Max marks always come from the mapping;
// observed maxima are unreliable on sparse or partially-graded data.
func (r *SchemaResolver) resolveExplicit(assessment models.Assessment, entries []models.COMapEntry) []models.QuestionColumn {
	var columns []models.QuestionColumn
	for _, entry := range entries {
		if entry.MaxMarks != nil && *entry.MaxMarks <= 0 {
			continue
		}
		name, ok := matchColumn(assessment.Columns, entry.QuestionColumn)
		if !ok {
			r.logger.Warn("co mapping entry has no matching column",
				zap.String("assessment_id", assessment.ID),
				zap.String("question_column", entry.QuestionColumn))
			continue
		}
		var maxMarks float64
		if entry.MaxMarks != nil {
			maxMarks = *entry.MaxMarks
		}
		columns = append(columns, models.QuestionColumn{
			Name:     name,
			MaxMarks: maxMarks,
			CONumber: entry.CONumber,
			Number:   ParseQuestionNumber(name),
			Special:  ClassifySpecial(name),
		})
	}
	return columns
}

// resolveInferred classifies numeric columns and guesses a CO per column:
// a CO tag in the name, then a numeric suffix, then a CO tag in the first
// data row, then round-robin across COs 1-6.
func (r *SchemaResolver) resolveInferred(assessment models.Assessment, rows []models.StudentRow) []models.QuestionColumn {
	numeric := ClassifyNumericColumns(assessment.Columns, rows)
	if len(numeric) == 0 {
		return nil
	}

	var firstRow *models.StudentRow
	if len(rows) > 0 {
		firstRow = &rows[0]
	}

	columns := make([]models.QuestionColumn, 0, len(numeric))
	unmapped := 0
	for _, name := range numeric {
		co, found := inferCO(name, firstRow)
		if !found {
			co = unmapped%fallbackCOCount + 1
			unmapped++
		}
		coNumber := co
		columns = append(columns, models.QuestionColumn{
			Name:     name,
			MaxMarks: observedMax(name, rows),
			CONumber: &coNumber,
			Number:   ParseQuestionNumber(name),
			Special:  ClassifySpecial(name),
		})
	}
	return columns
}

func inferCO(name string, firstRow *models.StudentRow) (int, bool) {
	if match := coNamePattern.FindStringSubmatch(name); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n, true
		}
	}
	if match := numericSuffixMatch.FindStringSubmatch(name); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n, true
		}
	}
	if firstRow != nil {
		if raw, ok := firstRow.Cell(name); ok {
			if match := coNamePattern.FindStringSubmatch(raw); match != nil {
				if n, err := strconv.Atoi(match[1]); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

// observedMax is only used on the inference path, where no mapping exists.
func observedMax(column string, rows []models.StudentRow) float64 {
	var max float64
	for _, row := range rows {
		if value, ok := cellMark(row, column); ok && value > max {
			max = value
		}
	}
	return max
}

func matchColumn(columns []string, target string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(target))
	for _, column := range columns {
		if strings.ToLower(strings.TrimSpace(column)) == normalized {
			return column, true
		}
	}
	return "", false
}
