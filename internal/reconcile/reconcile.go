// Package reconcile implements the balance-reconciliation engine: the
// heart of the ingestion pipeline. Given a chronologically ordered slice
// of canonical rows it validates each row's running balance against the
// previous valid row, repairs a credit/debit mis-assignment when a single
// type flip makes the arithmetic hold, and flags whatever it cannot
// repair. The algorithm is a pure function — no I/O, no concurrency — so
// that it stays the one place in the engine where correctness is fully
// checkable by example.
package reconcile

import (
	"math"

	"github.com/fantomftfw/bankParse/internal/model"
)

// Epsilon is the balance-equality tolerance. It's a constant of the
// engine, not per-run configurable (see DESIGN.md).
const Epsilon = 0.10

// floatSlack absorbs binary floating-point rounding in the balance
// subtraction, so a delta of exactly Epsilon in decimal is accepted.
const floatSlack = 1e-9

// isValid is the strict validity predicate: a row must carry a non-empty
// date and a present running balance, and either a finite amount with a
// credit/debit type, or opening-balance shape.
func isValid(r model.CanonicalRow) bool {
	if r.Date == "" {
		return false
	}
	if !r.HasRunningBalance {
		return false
	}
	if r.Type == model.TypeNone {
		return r.Amount == 0
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return false
	}
	return r.Type == model.TypeCredit || r.Type == model.TypeDebit
}

// expectedBalance computes p.RunningBalance + signed(r).
func expectedBalance(prevBalance float64, r model.CanonicalRow) float64 {
	return prevBalance + r.Type.Signed()*r.Amount
}

func withinTolerance(actual, expected float64) bool {
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	return diff <= Epsilon+floatSlack
}

// Reconcile returns a new slice with provenance flags populated and, where
// a single type flip repairs the arithmetic, the corrected type applied.
// The input is never mutated in place.
func Reconcile(rows []model.CanonicalRow) []model.CanonicalRow {
	out := make([]model.CanonicalRow, len(rows))
	copy(out, rows)
	// Provenance flags are output, not input: start every row clean and let
	// isValid (driven by HasRunningBalance, Date, and Type) and the
	// arithmetic checks below be the only source of truth for them. The one
	// exception is TypeCorrected on a row that balances as-is: its type was
	// flipped by an earlier pass, so the flag is kept and a second pass
	// returns the same output as the first.
	for i := range out {
		out[i].BalanceMismatch = false
		out[i].InvalidStructure = false
	}

	firstValid := -1
	for i, r := range out {
		if isValid(r) {
			firstValid = i
			break
		}
	}

	if firstValid == -1 {
		for i := range out {
			out[i].InvalidStructure = true
			out[i].TypeCorrected = false
		}
		return out
	}

	for i := 0; i < firstValid; i++ {
		out[i].InvalidStructure = true
		out[i].BalanceMismatch = true
		out[i].TypeCorrected = false
	}

	// prevValidBalance tracks the running balance of the most recent
	// already-processed row that passed the validity predicate.
	prevValidBalance := out[firstValid].RunningBalance

	for i := firstValid + 1; i < len(out); i++ {
		r := out[i]

		if !isValid(r) {
			out[i].InvalidStructure = true
			out[i].BalanceMismatch = true
			out[i].TypeCorrected = false
			continue
		}

		if r.IsOpeningBalance() {
			// Opening-balance rows skip arithmetic checks entirely (step 4).
			prevValidBalance = r.RunningBalance
			continue
		}

		expected := expectedBalance(prevValidBalance, r)
		if withinTolerance(r.RunningBalance, expected) {
			prevValidBalance = r.RunningBalance
			continue
		}

		flipped := r
		flipped.Type = r.Type.Opposite()
		expectedFlipped := expectedBalance(prevValidBalance, flipped)
		if withinTolerance(r.RunningBalance, expectedFlipped) {
			// Tie-break: if the original also held (only possible when
			// Amount == 0), prefer the original type — no spurious
			// correction.
			out[i].Type = flipped.Type
			out[i].TypeCorrected = true
			prevValidBalance = r.RunningBalance
			continue
		}

		out[i].BalanceMismatch = true
		out[i].TypeCorrected = false
		prevValidBalance = r.RunningBalance
	}

	return out
}

// Flags extracts the compact per-row flag list (only rows with any flag
// set) from a reconciled row slice, for persistence alongside a run.
func Flags(rows []model.CanonicalRow) []model.RowFlag {
	var flags []model.RowFlag
	for i, r := range rows {
		if r.BalanceMismatch || r.TypeCorrected || r.InvalidStructure {
			flags = append(flags, model.RowFlag{
				RowIndex:        i,
				BalanceMismatch: r.BalanceMismatch,
				TypeCorrected:   r.TypeCorrected,
				InvalidStructure: r.InvalidStructure,
			})
		}
	}
	return flags
}
