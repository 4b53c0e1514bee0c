package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// metadataColumns are never question columns regardless of their content.
var metadataColumns = map[string]struct{}{
	"usn":          {},
	"roll no":      {},
	"rollno":       {},
	"roll number":  {},
	"name":         {},
	"student name": {},
	"student":      {},
	"sl no":        {},
	"sl. no":       {},
	"sl.no":        {},
	"s.no":         {},
	"sno":          {},
	"section":      {},
	"email":        {},
	"remarks":      {},
	"remark":       {},
}

var totalPrefixes = []string{"total", "sum", "grand total"}

const (
	classifierSampleSize = 10
	numericSampleRatio   = 0.5
)

// ClassifyNumericColumns inspects raw column names and sampled cell values
// and returns the columns that look like graded question columns. This is
// the fallback path only; an explicit CO mapping always takes precedence.
func ClassifyNumericColumns(columns []string, rows []models.StudentRow) []string {
	var numeric []string
	for _, column := range columns {
		normalized := strings.ToLower(strings.TrimSpace(column))
		if normalized == "" {
			continue
		}
		if _, meta := metadataColumns[normalized]; meta {
			continue
		}
		if hasTotalPrefix(normalized) {
			continue
		}
		if sampleIsNumeric(column, rows) {
			numeric = append(numeric, column)
		}
	}
	return numeric
}

func hasTotalPrefix(normalized string) bool {
	for _, prefix := range totalPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

// sampleIsNumeric samples up to 10 non-empty values; a column qualifies when
// more than half of the sampled values parse as finite numbers. Blank cells
// are skipped before sampling since optional questions leave many blanks.
func sampleIsNumeric(column string, rows []models.StudentRow) bool {
	sampled, parsed := 0, 0
	for _, row := range rows {
		raw, ok := row.Cell(column)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.EqualFold(trimmed, "nan") {
			continue
		}
		sampled++
		if _, ok := parseMark(trimmed); ok {
			parsed++
		}
		if sampled >= classifierSampleSize {
			break
		}
	}
	if sampled == 0 {
		return false
	}
	return float64(parsed) > float64(sampled)*numericSampleRatio
}

// parseMark parses a raw cell into a finite mark value. Empty cells and the
// literal string "NaN" count as unattempted, not as zero.
func parseMark(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
