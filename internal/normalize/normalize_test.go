package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantomftfw/bankParse/internal/model"
	"github.com/fantomftfw/bankParse/internal/rowvalue"
)

func TestNormalize_S5_KeyAliasing(t *testing.T) {
	raw := rowvalue.Row{
		"Transaction Date": rowvalue.Text("10/Apr/2024"),
		"Narration":         rowvalue.Text("X"),
		"Debit":             rowvalue.Text("1,500.50"),
		"Balance":           rowvalue.Text("25,000.75"),
	}

	got, ok := Normalize(raw)

	require.True(t, ok)
	assert.Equal(t, model.CanonicalRow{
		Date:              "10/Apr/2024",
		Description:       "X",
		Amount:            1500.50,
		Type:              model.TypeDebit,
		RunningBalance:    25000.75,
		HasRunningBalance: true,
	}, got)
}

func TestNormalize_OpeningBalanceRowAdmittedWithZeroAmount(t *testing.T) {
	raw := rowvalue.Row{
		"date":            rowvalue.Text("01/04/2024"),
		"description":     rowvalue.Text("Opening Balance"),
		"running_balance": rowvalue.Number(1000),
	}

	got, ok := Normalize(raw)

	require.True(t, ok)
	assert.Equal(t, model.TypeNone, got.Type)
	assert.Equal(t, float64(0), got.Amount)
	assert.True(t, got.IsOpeningBalance())
}

func TestNormalize_RejectsRowMissingBalance(t *testing.T) {
	raw := rowvalue.Row{
		"date":        rowvalue.Text("01/04/2024"),
		"description": rowvalue.Text("Salary"),
		"Credit":      rowvalue.Number(500),
	}

	_, ok := Normalize(raw)

	assert.False(t, ok)
}

func TestNormalize_RejectsAmbiguousZeroRow(t *testing.T) {
	raw := rowvalue.Row{
		"date":            rowvalue.Text("01/04/2024"),
		"description":     rowvalue.Text("Unrelated note"),
		"running_balance": rowvalue.Number(1000),
	}

	_, ok := Normalize(raw)

	assert.False(t, ok, "no debit/credit/opening-balance shape should be rejected")
}

func TestNormalize_ExistingAmountAndTypeTakePriority(t *testing.T) {
	raw := rowvalue.Row{
		"date":            rowvalue.Text("02/04/2024"),
		"description":     rowvalue.Text("Refund"),
		"amount":          rowvalue.Number(-75),
		"type":            rowvalue.Text("credit"),
		"running_balance": rowvalue.Number(925),
	}

	got, ok := Normalize(raw)

	require.True(t, ok)
	assert.Equal(t, model.TypeCredit, got.Type)
	assert.Equal(t, float64(75), got.Amount, "amount is always stored unsigned")
}

func TestNormalize_CollapsesEmbeddedNewlinesInDescription(t *testing.T) {
	raw := rowvalue.Row{
		"date":            rowvalue.Text("01/04/2024"),
		"description":     rowvalue.Text("UPI/multi\n  line/note"),
		"Credit":          rowvalue.Number(10),
		"running_balance": rowvalue.Number(10),
	}

	got, ok := Normalize(raw)

	require.True(t, ok)
	assert.Equal(t, "UPI/multi line/note", got.Description)
}

func TestCleanKeys_CollapsesWhitespaceInKeys(t *testing.T) {
	raw := rowvalue.Row{
		"Transaction  \n Date": rowvalue.Text("01/04/2024"),
	}
	cleaned := CleanKeys(raw)
	_, ok := cleaned["Transaction Date"]
	assert.True(t, ok)
}
