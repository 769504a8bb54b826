// Package normalize implements the key normalizer: it turns a heterogeneous
// RawRow (map[string]RowValue, issuer-shaped keys) into the engine's
// CanonicalRow schema. Key whitespace cleaning follows the same
// regexp-driven style this codebase uses for merchant-name cleaning;
// amount parsing follows its flexible-amount-string parser, generalized
// to strip commas and recognize CR/DR suffixes per issuer.
package normalize

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/fantomftfw/bankParse/internal/model"
	"github.com/fantomftfw/bankParse/internal/rowvalue"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanKey collapses any run of whitespace (including embedded newlines and
// tabs) into a single space and trims the result.
func cleanKey(k string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(k, " "))
}

// CleanKeys returns a new Row with every key whitespace-cleaned.
func CleanKeys(row rowvalue.Row) rowvalue.Row {
	out := make(rowvalue.Row, len(row))
	for k, v := range row {
		out[cleanKey(k)] = v
	}
	return out
}

// fieldCandidates lists, in priority order, the source keys that resolve a
// canonical field.
var fieldCandidates = map[string][]string{
	"date":            {"date", "Transaction Date", "Value Date", "Date"},
	"description":     {"description", "Transaction Remarks", "Narration", "Transaction details"},
	"running_balance": {"running_balance", "Balance"},
}

var debitKeys = []string{"Debit", "Withdrawal (Dr)"}
var creditKeys = []string{"Credit", "Deposit(Cr)"}

var openingBalanceRe = regexp.MustCompile(`(?i)^\s*opening\s+balance\s*$`)

func isOpeningBalanceDescription(s string) bool {
	return openingBalanceRe.MatchString(s)
}

func firstNonEmpty(row rowvalue.Row, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			s := v.AsString()
			if strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	}
	return "", false
}

func parseNumericCandidate(row rowvalue.Row, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := row[k]
		if !ok {
			continue
		}
		if n, ok := v.AsNumber(); ok {
			return n, true
		}
	}
	return 0, false
}

// collapseDescription collapses embedded newlines to single spaces and
// trims.
func collapseDescription(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Normalize converts one cleaned RawRow into a CanonicalRow. ok is false if
// the row fails admission; rejected rows are logged, not
// silently dropped.
func Normalize(raw rowvalue.Row) (row model.CanonicalRow, ok bool) {
	cleaned := CleanKeys(raw)

	date, hasDate := firstNonEmpty(cleaned, fieldCandidates["date"])
	descriptionRaw, hasDescription := firstNonEmpty(cleaned, fieldCandidates["description"])
	balanceStr, hasBalance := firstNonEmpty(cleaned, fieldCandidates["running_balance"])

	description := ""
	if hasDescription {
		description = collapseDescription(descriptionRaw)
	}

	var runningBalance float64
	if hasBalance {
		if n, parseOK := parseFloatLoose(balanceStr); parseOK {
			runningBalance = n
		} else {
			hasBalance = false
		}
	}

	amount, txType, amountOK := resolveAmountAndType(cleaned, description)

	if !hasDate || !hasBalance || !amountOK {
		log.Printf("normalize: rejecting row (date=%v description=%v balance=%v amount=%v)", hasDate, hasDescription, hasBalance, amountOK)
		return model.CanonicalRow{}, false
	}

	return model.CanonicalRow{
		Date:              date,
		Description:       description,
		Amount:            amount,
		Type:              txType,
		RunningBalance:    runningBalance,
		HasRunningBalance: true,
	}, true
}

// resolveAmountAndType picks the unsigned amount and transaction type for a row.
func resolveAmountAndType(row rowvalue.Row, description string) (amount float64, txType model.TransactionType, ok bool) {
	if amountVal, hasAmount := row["amount"]; hasAmount {
		if typeVal, hasType := row["type"]; hasType {
			typeStr := strings.ToLower(strings.TrimSpace(typeVal.AsString()))
			var t model.TransactionType
			switch typeStr {
			case "credit":
				t = model.TypeCredit
			case "debit":
				t = model.TypeDebit
			}
			if t != model.TypeNone {
				if n, numOK := amountVal.AsNumber(); numOK {
					if n < 0 {
						n = -n
					}
					return n, t, true
				}
			}
		}
	}

	debitCandidate, hasDebit := parseNumericCandidate(row, debitKeys)
	creditCandidate, hasCredit := parseNumericCandidate(row, creditKeys)

	if hasDebit && debitCandidate > 0 {
		return debitCandidate, model.TypeDebit, true
	}
	if hasCredit && creditCandidate > 0 {
		return creditCandidate, model.TypeCredit, true
	}
	if isOpeningBalanceDescription(description) {
		return 0, model.TypeNone, true
	}
	return 0, model.TypeNone, false
}

// parseFloatLoose strips thousands-separator commas and a leading currency
// symbol before parsing, following this codebase's flexible-amount-string
// convention.
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
