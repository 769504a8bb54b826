package runs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/model"
)

// MemoryStore is a sync.RWMutex-guarded in-memory Store, following this
// codebase's per-entity map + single-mutex convention.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]model.ProcessingRun
	feedbacks map[string][]model.FeedbackSubmission // keyed by run id
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:      make(map[string]model.ProcessingRun),
		feedbacks: make(map[string][]model.FeedbackSubmission),
	}
}

// CreateRun implements Store.CreateRun.
func (m *MemoryStore) CreateRun(ctx context.Context, run model.ProcessingRun) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	m.runs[run.ID] = run
	return run.ID, nil
}

// ConfirmAccuracy implements Store.ConfirmAccuracy. Idempotent: calling it
// repeatedly with the same value is a no-op beyond re-setting the field.
func (m *MemoryStore) ConfirmAccuracy(ctx context.Context, runID string, accurate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return engineerrors.New(engineerrors.ArtifactNotFound, "run not found: "+runID)
	}
	if accurate {
		run.UserAccuracyConfirmed = model.AccuracyConfirmedTrue
	} else {
		run.UserAccuracyConfirmed = model.AccuracyConfirmedFalse
	}
	m.runs[runID] = run
	return nil
}

// GetRun implements Store.GetRun.
func (m *MemoryStore) GetRun(ctx context.Context, runID string) (model.ProcessingRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return model.ProcessingRun{}, engineerrors.New(engineerrors.ArtifactNotFound, "run not found: "+runID)
	}
	return run, nil
}

// SubmitFeedback implements Store.SubmitFeedback, computing the diff
// analysis atomically with storage.
func (m *MemoryStore) SubmitFeedback(ctx context.Context, runID string, correctedRows []model.CanonicalRow) (model.FeedbackSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return model.FeedbackSubmission{}, engineerrors.New(engineerrors.ArtifactNotFound, "run not found: "+runID)
	}

	submission := model.FeedbackSubmission{
		ID:            uuid.New().String(),
		RunID:         runID,
		SubmittedAt:   time.Now(),
		CorrectedRows: correctedRows,
		Analysis:      Diff(run.Rows, correctedRows),
	}
	m.feedbacks[runID] = append(m.feedbacks[runID], submission)
	return submission, nil
}

// DeleteRun implements Store.DeleteRun, cascading to the run's feedback
// submissions.
func (m *MemoryStore) DeleteRun(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return engineerrors.New(engineerrors.ArtifactNotFound, "run not found: "+runID)
	}
	delete(m.runs, runID)
	delete(m.feedbacks, runID)
	return nil
}
