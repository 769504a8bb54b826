// Package model holds the domain types shared across the ingestion and
// reconciliation engine: the canonical transaction row, a processing run,
// user feedback on a run, and the extraction prompt.
package model

import "time"

// TransactionType distinguishes a credit row from a debit row. The zero
// value, TypeNone, marks an opening-balance row.
type TransactionType int

const (
	TypeNone TransactionType = iota
	TypeCredit
	TypeDebit
)

func (t TransactionType) String() string {
	switch t {
	case TypeCredit:
		return "credit"
	case TypeDebit:
		return "debit"
	default:
		return ""
	}
}

// Opposite flips credit<->debit; TypeNone maps to itself.
func (t TransactionType) Opposite() TransactionType {
	switch t {
	case TypeCredit:
		return TypeDebit
	case TypeDebit:
		return TypeCredit
	default:
		return TypeNone
	}
}

// Signed returns +1 for credit, -1 for debit, 0 for TypeNone.
func (t TransactionType) Signed() float64 {
	switch t {
	case TypeCredit:
		return 1
	case TypeDebit:
		return -1
	default:
		return 0
	}
}

// CanonicalRow is the reconciliation unit: one statement line after key
// normalization and, once the balance reconciler has run, after provenance flags are set.
type CanonicalRow struct {
	Date              string          `json:"date"`
	Description       string          `json:"description"`
	Amount            float64         `json:"amount"` // always 0 when Type == TypeNone
	Type              TransactionType `json:"type"`
	RunningBalance    float64         `json:"running_balance"`
	HasRunningBalance bool            `json:"-"` // false means RunningBalance is a zero value, not a real reading
	BalanceMismatch   bool            `json:"balance_mismatch"`
	TypeCorrected     bool            `json:"type_corrected"`
	InvalidStructure  bool            `json:"invalid_structure"`
}

// IsOpeningBalance reports whether the row has opening-balance shape: zero
// amount and no type. The description is not examined; the normalizer
// admits a typeless row only when its description reads "OPENING BALANCE"
// (case-insensitive).
func (r CanonicalRow) IsOpeningBalance() bool {
	return r.Type == TypeNone && r.Amount == 0
}

// PageError records a per-page extraction failure that was skipped rather
// than aborting the run.
type PageError struct {
	PageIndex int    `json:"page_index"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// RowFlag is the compact per-row flag record persisted alongside a run —
// only rows with at least one flag set are included.
type RowFlag struct {
	RowIndex        int  `json:"row_index"`
	BalanceMismatch bool `json:"balance_mismatch"`
	TypeCorrected   bool `json:"type_corrected"`
	InvalidStructure bool `json:"invalid_structure"`
}

// AccuracyConfirmation is a tri-state: unknown until the user confirms or
// rejects the run's accuracy.
type AccuracyConfirmation int

const (
	AccuracyUnknown AccuracyConfirmation = iota
	AccuracyConfirmedTrue
	AccuracyConfirmedFalse
)

// ProcessingRun is produced by the pipeline orchestrator and persisted by
// the run store. Once created it is mutated only in UserAccuracyConfirmed.
type ProcessingRun struct {
	ID                   string
	SourceName           string
	CreatedAt            time.Time
	ModelTag             string
	PromptID             string
	Issuer               string
	Pages                int
	Rows                 []CanonicalRow
	Flags                []RowFlag
	PageErrors           []PageError
	UserAccuracyConfirmed AccuracyConfirmation
}

// FeedbackSubmission records one user correction of a run. Immutable once
// stored.
type FeedbackSubmission struct {
	ID           string
	RunID        string
	SubmittedAt  time.Time
	CorrectedRows []CanonicalRow
	Analysis     DiffAnalysis
}

// CellChange records one field-level edit between the original and
// corrected row at the same position.
type CellChange struct {
	RowIndex int    `json:"row_index"`
	Field    string `json:"field"`
	Old      string `json:"old"`
	New      string `json:"new"`
}

// DiffAnalysis is the result of comparing a run's original rows against a
// user's corrected rows.
type DiffAnalysis struct {
	RowsAdded         int            `json:"rows_added"`
	RowsDeleted       int            `json:"rows_deleted"`
	RowsModified      int            `json:"rows_modified"`
	CellChanges       []CellChange   `json:"cell_changes"`
	FieldChangeCounts map[string]int `json:"field_change_counts"`
}

// Prompt is one extraction prompt slot. IssuerTag == "" identifies the
// default slot, which must always have exactly one active row.
type Prompt struct {
	ID         string
	IssuerTag  string
	Text       string
	Version    int
	IsActive   bool
	IsDefault  bool
}
