package runs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/model"
)

const (
	runsCollection     = "processingRuns"
	feedbackCollection = "feedbackSubmissions"
)

// FirestoreStore implements Store using Firestore, following this
// codebase's FirestoreStore convention: one collection per entity,
// documents keyed by their own ID, field
// names matching the Go struct's exported field names exactly (that is
// how Firestore serializes a plain struct via DataTo/Set).
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore builds a Firestore-backed Store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// firestoreRun is the Firestore document shape for a ProcessingRun. Stored
// separately from model.ProcessingRun so the Firestore document shape
// (struct-tag-free PascalCase fields, the accuracy tri-state stored as a
// plain int) stays decoupled from the domain type, mirroring how this
// codebase's store package keeps its own
// Firestore documents distinct from wire-facing protobuf structs.
type firestoreRun struct {
	ID                    string
	SourceName            string
	CreatedAt             time.Time
	ModelTag              string
	PromptID              string
	Issuer                string
	Pages                 int
	Rows                  []model.CanonicalRow
	Flags                 []model.RowFlag
	PageErrors            []model.PageError
	UserAccuracyConfirmed int
}

func toFirestoreRun(r model.ProcessingRun) firestoreRun {
	return firestoreRun{
		ID: r.ID, SourceName: r.SourceName, CreatedAt: r.CreatedAt,
		ModelTag: r.ModelTag, PromptID: r.PromptID, Issuer: r.Issuer,
		Pages: r.Pages, Rows: r.Rows, Flags: r.Flags, PageErrors: r.PageErrors,
		UserAccuracyConfirmed: int(r.UserAccuracyConfirmed),
	}
}

func fromFirestoreRun(f firestoreRun) model.ProcessingRun {
	return model.ProcessingRun{
		ID: f.ID, SourceName: f.SourceName, CreatedAt: f.CreatedAt,
		ModelTag: f.ModelTag, PromptID: f.PromptID, Issuer: f.Issuer,
		Pages: f.Pages, Rows: f.Rows, Flags: f.Flags, PageErrors: f.PageErrors,
		UserAccuracyConfirmed: model.AccuracyConfirmation(f.UserAccuracyConfirmed),
	}
}

// CreateRun implements Store.CreateRun.
func (s *FirestoreStore) CreateRun(ctx context.Context, run model.ProcessingRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.client.Collection(runsCollection).Doc(run.ID).Set(ctx, toFirestoreRun(run))
	if err != nil {
		return "", engineerrors.Wrap(engineerrors.RunPersistenceFailed, "write run to firestore", err)
	}
	return run.ID, nil
}

// ConfirmAccuracy implements Store.ConfirmAccuracy.
func (s *FirestoreStore) ConfirmAccuracy(ctx context.Context, runID string, accurate bool) error {
	value := int(model.AccuracyConfirmedFalse)
	if accurate {
		value = int(model.AccuracyConfirmedTrue)
	}
	_, err := s.client.Collection(runsCollection).Doc(runID).Update(ctx, []firestore.Update{
		{Path: "UserAccuracyConfirmed", Value: value},
	})
	if err != nil {
		return engineerrors.Wrap(engineerrors.ArtifactNotFound, "run not found: "+runID, err)
	}
	return nil
}

// GetRun implements Store.GetRun.
func (s *FirestoreStore) GetRun(ctx context.Context, runID string) (model.ProcessingRun, error) {
	doc, err := s.client.Collection(runsCollection).Doc(runID).Get(ctx)
	if err != nil {
		return model.ProcessingRun{}, engineerrors.Wrap(engineerrors.ArtifactNotFound, "run not found: "+runID, err)
	}
	var f firestoreRun
	if err := doc.DataTo(&f); err != nil {
		return model.ProcessingRun{}, fmt.Errorf("failed to parse run: %w", err)
	}
	return fromFirestoreRun(f), nil
}

// SubmitFeedback implements Store.SubmitFeedback.
func (s *FirestoreStore) SubmitFeedback(ctx context.Context, runID string, correctedRows []model.CanonicalRow) (model.FeedbackSubmission, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return model.FeedbackSubmission{}, err
	}

	submission := model.FeedbackSubmission{
		ID:            uuid.New().String(),
		RunID:         runID,
		SubmittedAt:   time.Now(),
		CorrectedRows: correctedRows,
		Analysis:      Diff(run.Rows, correctedRows),
	}
	_, err = s.client.Collection(feedbackCollection).Doc(submission.ID).Set(ctx, submission)
	if err != nil {
		return model.FeedbackSubmission{}, fmt.Errorf("write feedback to firestore: %w", err)
	}
	return submission, nil
}

// DeleteRun implements Store.DeleteRun, cascading to feedback submissions
// the same way the in-memory store does.
func (s *FirestoreStore) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.client.Collection(runsCollection).Doc(runID).Get(ctx); err != nil {
		return engineerrors.New(engineerrors.ArtifactNotFound, "run not found: "+runID)
	}

	iter := s.client.Collection(feedbackCollection).Where("RunID", "==", runID).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("list feedback for cascade delete: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("delete feedback submission %s: %w", doc.Ref.ID, err)
		}
	}

	_, err := s.client.Collection(runsCollection).Doc(runID).Delete(ctx)
	return err
}
