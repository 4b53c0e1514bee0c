package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// optionalPairs lists the mutually-exclusive question alternatives. A
// student answers exactly one question per pair; questions 1 and 2 and the
// AAT/QUIZ singletons are always compulsory. The pairing is a fixed domain
// rule, not configuration.
var optionalPairs = [][2]int{{3, 4}, {5, 6}, {7, 8}}

var questionNumberPattern = regexp.MustCompile(`^q(?:uestion)?\s*\.?\s*(\d+)|^(\d+)`)

// ParseQuestionNumber extracts the question number from a column name
// ("Q3", "q3a", "3b" all yield 3). Zero means no number was found.
func ParseQuestionNumber(name string) int {
	normalized := strings.ToLower(strings.TrimSpace(name))
	match := questionNumberPattern.FindStringSubmatch(normalized)
	if match == nil {
		return 0
	}
	digits := match[1]
	if digits == "" {
		digits = match[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// ClassifySpecial recognises the assessment-wide AAT/QUIZ singleton columns.
func ClassifySpecial(name string) models.QuestionSpecial {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case normalized == string(models.SpecialAAT) || strings.HasPrefix(normalized, "AAT "):
		return models.SpecialAAT
	case normalized == string(models.SpecialQuiz) || strings.HasPrefix(normalized, "QUIZ "):
		return models.SpecialQuiz
	}
	return models.SpecialNone
}

func pairIndex(number int) int {
	for i, pair := range optionalPairs {
		if number == pair[0] || number == pair[1] {
			return i
		}
	}
	return -1
}

// ResolveAttempted decides, for one student row, which schema columns count.
// Compulsory columns always count. For each optional pair present in the
// schema the column with the strictly greater parsed value counts; when
// neither column has a usable value the pair's first column counts, so
// downstream attempt bookkeeping stays structurally consistent.
//
// Both analyzers must use this exact selection or per-question sums and
// per-student totals drift apart.
func ResolveAttempted(row models.StudentRow, schema *models.QuestionSchema) map[string]bool {
	counted := make(map[string]bool, len(schema.Columns))

	type pairSide struct {
		column models.QuestionColumn
		found  bool
	}
	pairs := make([][2]pairSide, len(optionalPairs))

	for _, column := range schema.Columns {
		idx := -1
		if column.Special == models.SpecialNone {
			idx = pairIndex(column.Number)
		}
		if idx < 0 {
			counted[column.Name] = true
			continue
		}
		side := 0
		if column.Number == optionalPairs[idx][1] {
			side = 1
		}
		if !pairs[idx][side].found {
			pairs[idx][side] = pairSide{column: column, found: true}
		} else {
			// duplicate question number in schema; count it as compulsory
			counted[column.Name] = true
		}
	}

	for _, pair := range pairs {
		first, second := pair[0], pair[1]
		switch {
		case first.found && second.found:
			counted[selectFromPair(row, first.column, second.column)] = true
		case first.found:
			counted[first.column.Name] = true
		case second.found:
			counted[second.column.Name] = true
		}
	}

	return counted
}

// selectFromPair returns the name of the pair member that counts for the
// student. Ties and fully-blank pairs fall back to the first column.
func selectFromPair(row models.StudentRow, first, second models.QuestionColumn) string {
	firstValue, firstOK := cellMark(row, first.Name)
	secondValue, secondOK := cellMark(row, second.Name)

	switch {
	case firstOK && secondOK:
		if secondValue > firstValue {
			return second.Name
		}
		return first.Name
	case secondOK:
		return second.Name
	default:
		return first.Name
	}
}

func cellMark(row models.StudentRow, column string) (float64, bool) {
	raw, ok := row.Cell(column)
	if !ok {
		return 0, false
	}
	return parseMark(raw)
}
