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

type mappingStub struct {
	entries []models.COMapEntry
	err     error
}

func (s *mappingStub) ListCOMappings(_ context.Context, _ string) ([]models.COMapEntry, error) {
	return s.entries, s.err
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestSchemaResolverExplicitMapping(t *testing.T) {
	assessment := models.Assessment{
		ID:      "a1",
		Name:    "CIE1 Internals",
		Columns: []string{"USN", "Q1", "q2", "AAT"},
	}
	resolver := NewSchemaResolver(&mappingStub{entries: []models.COMapEntry{
		{AssessmentID: "a1", QuestionColumn: "Q1", CONumber: intPtr(1), MaxMarks: floatPtr(10)},
		{AssessmentID: "a1", QuestionColumn: "Q2", CONumber: intPtr(2), MaxMarks: floatPtr(15)},
		{AssessmentID: "a1", QuestionColumn: "AAT", CONumber: nil, MaxMarks: floatPtr(10)},
		{AssessmentID: "a1", QuestionColumn: "Q9", CONumber: intPtr(3), MaxMarks: floatPtr(10)},
		{AssessmentID: "a1", QuestionColumn: "Q1", CONumber: intPtr(4), MaxMarks: floatPtr(0)},
	}}, nil)

	schema, err := resolver.Resolve(context.Background(), assessment, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SchemaSourceExplicit, schema.Source)
	assert.Equal(t, models.AssessmentCIE1, schema.Type)
	require.Len(t, schema.Columns, 3)

	q1, ok := schema.Column("Q1")
	require.True(t, ok)
	assert.Equal(t, 10.0, q1.MaxMarks)
	assert.Equal(t, 1, *q1.CONumber)
	assert.Equal(t, 1, q1.Number)

	// the mapping said Q2, the sheet says q2; the sheet casing wins
	q2, ok := schema.Column("q2")
	require.True(t, ok)
	assert.Equal(t, "q2", q2.Name)
	assert.Equal(t, 15.0, q2.MaxMarks)

	aat, ok := schema.Column("AAT")
	require.True(t, ok)
	assert.Equal(t, models.SpecialAAT, aat.Special)
	assert.Nil(t, aat.CONumber)
}

func TestSchemaResolverInferredFallback(t *testing.T) {
	assessment := models.Assessment{
		ID:      "a2",
		Name:    "CIE2",
		Columns: []string{"USN", "Q1 (CO1)", "Q2", "Marks"},
	}
	rows := []models.StudentRow{
		{Cells: map[string]string{"USN": "1XX21CS001", "Q1 (CO1)": "8", "Q2": "6", "Marks": "CO3"}},
		{Cells: map[string]string{"USN": "1XX21CS002", "Q1 (CO1)": "10", "Q2": "4", "Marks": "CO3"}},
	}
	resolver := NewSchemaResolver(&mappingStub{}, nil)

	schema, err := resolver.Resolve(context.Background(), assessment, rows)
	require.NoError(t, err)
	assert.Equal(t, models.SchemaSourceInferred, schema.Source)
	require.Len(t, schema.Columns, 2)

	q1, ok := schema.Column("Q1 (CO1)")
	require.True(t, ok)
	assert.Equal(t, 1, *q1.CONumber)
	assert.Equal(t, 10.0, q1.MaxMarks)

	q2, ok := schema.Column("Q2")
	require.True(t, ok)
	assert.Equal(t, 2, *q2.CONumber)
	assert.Equal(t, 6.0, q2.MaxMarks)
}

func TestSchemaResolverNoUsableColumns(t *testing.T) {
	assessment := models.Assessment{
		ID:      "a3",
		Name:    "Attendance Sheet",
		Columns: []string{"USN", "Name", "Remarks"},
	}
	rows := []models.StudentRow{
		{Cells: map[string]string{"USN": "1XX21CS001", "Name": "A", "Remarks": "present"}},
	}
	resolver := NewSchemaResolver(&mappingStub{}, nil)

	_, err := resolver.Resolve(context.Background(), assessment, rows)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchemaResolution.Code, appErrors.FromError(err).Code)
}

func TestSchemaResolverMappingLoadFailure(t *testing.T) {
	resolver := NewSchemaResolver(&mappingStub{err: errors.New("db down")}, nil)
	_, err := resolver.Resolve(context.Background(), models.Assessment{ID: "a4", Name: "CIE3"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
