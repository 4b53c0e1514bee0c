package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

func TestCombinedAttainmentDataset(t *testing.T) {
	rows := []models.CombinedAttainment{
		{CONumber: 1, TotalMaxMarks: 30, TotalAttempts: 5, AboveThreshold: 3, AttainmentPercent: 60},
	}
	dataset := CombinedAttainmentDataset(rows)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "CO1", dataset.Rows[0]["CO"])
	assert.Equal(t, "60.00", dataset.Rows[0]["Attainment %"])
}

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	payload, err := exporter.Render(Dataset{
		Headers: []string{"CO", "Attainment %"},
		Rows: []map[string]string{
			{"CO": "CO1", "Attainment %": "60.00"},
			{"CO": "CO2", "Attainment %": "100.00"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "CO,Attainment %", lines[0])
	assert.Equal(t, "CO1,60.00", lines[1])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	payload, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Total"},
		Rows:    []map[string]string{{"Student": "s1", "Total": "43.67"}},
	}, "Final CIE Composition")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}
