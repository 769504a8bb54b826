// Package runs implements the run store: persistence of processing runs and
// the user-feedback/diff workflow. It follows this codebase's Store
// interface convention (internal/store/store.go) — a narrow
// context-first interface with two concrete implementations, an
// in-memory one for local development and tests, and a Firestore-backed
// one for production, selected the same way cmd/server/main.go branches
// on USE_MEMORY_STORE.
package runs

import (
	"context"

	"github.com/fantomftfw/bankParse/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=runs

// Store is the run store's interface.
type Store interface {
	CreateRun(ctx context.Context, run model.ProcessingRun) (string, error)
	ConfirmAccuracy(ctx context.Context, runID string, accurate bool) error
	GetRun(ctx context.Context, runID string) (model.ProcessingRun, error)
	SubmitFeedback(ctx context.Context, runID string, correctedRows []model.CanonicalRow) (model.FeedbackSubmission, error)
	DeleteRun(ctx context.Context, runID string) error
}
