package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAssessmentType(t *testing.T) {
	cases := map[string]AssessmentType{
		"CIE1":                 AssessmentCIE1,
		"cie2 internals":       AssessmentCIE2,
		"Third Internal CIE3":  AssessmentCIE3,
		"AAT Submission":       AssessmentAAT,
		"Weekly quiz":          AssessmentQuiz,
		"Semester End Exam":    AssessmentOther,
		"CIE1 and CIE2 merged": AssessmentCIE1,
	}
	for name, expected := range cases {
		assert.Equal(t, expected, ClassifyAssessmentType(name), "name %q", name)
	}
}

func TestAssessmentTypePredicates(t *testing.T) {
	assert.True(t, AssessmentCIE1.IsCIE())
	assert.True(t, AssessmentCIE3.IsCIE())
	assert.False(t, AssessmentAAT.IsCIE())
	assert.True(t, AssessmentAAT.IsSupplementary())
	assert.True(t, AssessmentQuiz.IsSupplementary())
	assert.False(t, AssessmentOther.IsSupplementary())
}

func TestStudentRowCellCaseInsensitive(t *testing.T) {
	row := StudentRow{Cells: map[string]string{"Q1": "8", "aat": "9"}}

	v, ok := row.Cell("q1")
	assert.True(t, ok)
	assert.Equal(t, "8", v)

	v, ok = row.Cell("AAT")
	assert.True(t, ok)
	assert.Equal(t, "9", v)

	_, ok = row.Cell("Q2")
	assert.False(t, ok)
}
