package export

import (
	"fmt"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CombinedAttainmentDataset flattens course-wide CO attainment for export.
func CombinedAttainmentDataset(rows []models.CombinedAttainment) Dataset {
	headers := []string{"CO", "Max Marks", "Attempts", "Above Threshold", "Attainment %"}
	data := Dataset{Headers: headers}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"CO":              fmt.Sprintf("CO%d", row.CONumber),
			"Max Marks":       formatFloat(row.TotalMaxMarks),
			"Attempts":        fmt.Sprintf("%d", row.TotalAttempts),
			"Above Threshold": fmt.Sprintf("%d", row.AboveThreshold),
			"Attainment %":    formatFloat(row.AttainmentPercent),
		})
	}
	return data
}

// FinalCompositionDataset flattens final CIE scores for export.
func FinalCompositionDataset(rows []models.FinalComposition) Dataset {
	headers := []string{"Student", "CIE1", "CIE2", "CIE3", "Avg CIE", "AAT", "Quiz", "Total", "Percentage"}
	data := Dataset{Headers: headers}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Student":    row.StudentID,
			"CIE1":       formatFloat(row.ScaledCIE1),
			"CIE2":       formatFloat(row.ScaledCIE2),
			"CIE3":       formatFloat(row.ScaledCIE3),
			"Avg CIE":    formatFloat(row.AvgCIEScaled),
			"AAT":        formatFloat(row.AATMarks),
			"Quiz":       formatFloat(row.QuizMarks),
			"Total":      formatFloat(row.FinalTotal),
			"Percentage": formatFloat(row.FinalPercentage),
		})
	}
	return data
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
