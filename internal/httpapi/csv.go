package httpapi

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/fantomftfw/bankParse/internal/model"
)

var csvHeader = []string{
	"date", "description", "amount", "type", "running_balance",
	"balance_mismatch", "type_corrected", "invalid_structure",
}

// WriteCSV renders rows as the CSV artifact: one
// header row, then one row per transaction, null rendered as the empty
// string, booleans as "true"/"false". This is the thin canonical-row ->
// columns mapping treated as an external collaborator, not a core
// concern — encoding/csv does the actual serialization.
func WriteCSV(w io.Writer, rows []model.CanonicalRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range rows {
		amount := ""
		typ := r.Type.String()
		if r.Type != model.TypeNone {
			amount = strconv.FormatFloat(r.Amount, 'f', -1, 64)
		}
		record := []string{
			r.Date,
			r.Description,
			amount,
			typ,
			strconv.FormatFloat(r.RunningBalance, 'f', -1, 64),
			strconv.FormatBool(r.BalanceMismatch),
			strconv.FormatBool(r.TypeCorrected),
			strconv.FormatBool(r.InvalidStructure),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}
