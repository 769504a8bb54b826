package runs

import (
	"strconv"

	"github.com/fantomftfw/bankParse/internal/model"
)

// fieldValue renders one CanonicalRow field as its textual representation,
// with a null amount rendered as the empty string, so field-level diffing
// can compare by plain string equality.
func fieldValue(r model.CanonicalRow, field string) string {
	switch field {
	case "date":
		return r.Date
	case "description":
		return r.Description
	case "amount":
		if r.Type == model.TypeNone {
			return ""
		}
		return strconv.FormatFloat(r.Amount, 'f', -1, 64)
	case "type":
		return r.Type.String()
	case "running_balance":
		return strconv.FormatFloat(r.RunningBalance, 'f', -1, 64)
	default:
		return ""
	}
}

var diffFields = []string{"date", "description", "amount", "type", "running_balance"}

// Diff compares original rows against a user's corrected rows, positionally
// (matching by content reordering is an explicit non-goal), and produces
// the analysis payload persisted alongside a FeedbackSubmission.
func Diff(original, corrected []model.CanonicalRow) model.DiffAnalysis {
	analysis := model.DiffAnalysis{
		FieldChangeCounts: make(map[string]int),
	}

	if len(corrected) > len(original) {
		analysis.RowsAdded = len(corrected) - len(original)
	}
	if len(original) > len(corrected) {
		analysis.RowsDeleted = len(original) - len(corrected)
	}

	common := len(original)
	if len(corrected) < common {
		common = len(corrected)
	}

	for i := 0; i < common; i++ {
		rowModified := false
		for _, field := range diffFields {
			oldVal := fieldValue(original[i], field)
			newVal := fieldValue(corrected[i], field)
			if oldVal != newVal {
				analysis.CellChanges = append(analysis.CellChanges, model.CellChange{
					RowIndex: i,
					Field:    field,
					Old:      oldVal,
					New:      newVal,
				})
				analysis.FieldChangeCounts[field]++
				rowModified = true
			}
		}
		if rowModified {
			analysis.RowsModified++
		}
	}

	return analysis
}
