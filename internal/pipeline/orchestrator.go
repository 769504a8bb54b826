// Package pipeline implements the pipeline orchestrator: the per-upload
// workflow that owns split -> classify -> fan-out -> merge -> normalize ->
// reconcile -> persist -> emit. The bounded, concurrent per-page fan-out
// (step 4) is grounded directly on this codebase's own
// importer/internal/llm.EnrichTransactions pattern: a semaphore channel
// bounding concurrency, a sync.WaitGroup barrier, and a mutex-protected
// results slice sorted and merged deterministically by page index once
// every worker has returned.
package pipeline

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fantomftfw/bankParse/internal/classify"
	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/ingest"
	"github.com/fantomftfw/bankParse/internal/llm"
	"github.com/fantomftfw/bankParse/internal/model"
	"github.com/fantomftfw/bankParse/internal/normalize"
	"github.com/fantomftfw/bankParse/internal/prompt"
	"github.com/fantomftfw/bankParse/internal/reconcile"
	"github.com/fantomftfw/bankParse/internal/rowvalue"
	"github.com/fantomftfw/bankParse/internal/runs"
)

// Config tunes the orchestrator's resource model.
type Config struct {
	MaxWorkers      int           // default: min(pages, 4)
	PageTimeout     time.Duration // default: 60s
	PipelineTimeout time.Duration // default: 5m
	ModelTag        string
}

func (c Config) withDefaults() Config {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 60 * time.Second
	}
	if c.PipelineTimeout <= 0 {
		c.PipelineTimeout = 5 * time.Minute
	}
	return c
}

// Orchestrator drives one upload end to end. Its collaborators are
// dependency-injected, with no process-wide singletons: the prompt and run
// stores through narrow interfaces, the classifier and extractor as
// concrete types.
type Orchestrator struct {
	Classifier *classify.Classifier
	Prompts    prompt.Store
	Extractor  *llm.Extractor
	RunStore   runs.Store
	Config     Config
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(classifier *classify.Classifier, prompts prompt.Store, extractor *llm.Extractor, runStore runs.Store, cfg Config) *Orchestrator {
	return &Orchestrator{
		Classifier: classifier,
		Prompts:    prompts,
		Extractor:  extractor,
		RunStore:   runStore,
		Config:     cfg.withDefaults(),
	}
}

// Result is what the orchestrator returns to its caller: the persisted
// run ID, the reconciled rows, and the download ID for the CSV artifact.
type Result struct {
	RunID      string // "" if RunPersistenceFailed
	Rows       []model.CanonicalRow
	DownloadID string
}

// Ingest runs the full per-upload algorithm.
func (o *Orchestrator) Ingest(ctx context.Context, sourceBytes []byte, sourceName string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Config.PipelineTimeout)
	defer cancel()

	// Step 1: ingest. A scratch copy is only needed if a downstream
	// collaborator requires a file handle; the in-process pdf.Reader
	// works directly off the byte buffer, so the scratch file here exists
	// only to demonstrate — and test — the cleanup-on-every-exit-path
	// discipline expected of any scratch resource.
	scratchPath, err := writeScratchFile(sourceBytes)
	if err != nil {
		return Result{}, engineerrors.Wrap(engineerrors.MalformedSource, "write scratch copy", err)
	}
	defer os.Remove(scratchPath)

	// Step 2: split.
	pages, err := ingest.Split(sourceBytes)
	if err != nil {
		return Result{}, err
	}
	nonEmptyCount := 0
	for _, p := range pages {
		if p != "" {
			nonEmptyCount++
		}
	}
	if nonEmptyCount == 0 {
		return Result{}, engineerrors.New(engineerrors.NoTextExtracted, "no text extracted from any page")
	}

	// Step 3: classify (best-effort).
	issuer := ""
	if o.Classifier != nil && len(pages) > 0 {
		issuer = o.Classifier.Classify(ctx, pages[0])
	}

	cachedPrompts := prompt.NewRunCache(o.Prompts)

	// Step 4: fan-out, bounded worker pool.
	rawRows, pageErrors, promptID, err := o.fanOut(ctx, pages, issuer, cachedPrompts)
	if err != nil {
		return Result{}, err
	}

	// Step 6: normalize.
	var canonical []model.CanonicalRow
	for _, raw := range rawRows {
		row, ok := normalize.Normalize(raw)
		if ok {
			canonical = append(canonical, row)
		}
	}

	// Step 7: reconcile.
	reconciled := reconcile.Reconcile(canonical)
	if len(reconciled) == 0 {
		return Result{}, engineerrors.New(engineerrors.NoTransactionsExtracted, "no transactions survived normalization and reconciliation")
	}

	// Step 8: persist.
	run := model.ProcessingRun{
		SourceName: sourceName,
		CreatedAt:  time.Now(),
		ModelTag:   o.Config.ModelTag,
		PromptID:   promptID,
		Issuer:     issuer,
		Pages:      len(pages),
		Rows:       reconciled,
		Flags:      reconcile.Flags(reconciled),
		PageErrors: pageErrors,
	}

	runID := ""
	if o.RunStore != nil {
		id, err := o.RunStore.CreateRun(ctx, run)
		if err != nil {
			log.Printf("[pipeline] run persistence failed source=%q err=%v", sourceName, err)
		} else {
			runID = id
		}
	}

	// Step 9: emit.
	return Result{
		RunID:      runID,
		Rows:       reconciled,
		DownloadID: uuid.New().String() + ".csv",
	}, nil
}

type pageOutcome struct {
	pageIndex int
	rows      []rowvalue.Row
	pageErr   *model.PageError
}

// fanOut dispatches one LLM extraction call per page through a bounded worker pool.
// It is grounded directly on importer/internal/llm.EnrichTransactions: a
// semaphore channel bounding concurrency to min(len(pages), MaxWorkers), a
// WaitGroup barrier, and a mutex-protected results slice tagged with page
// index, merged in ascending page-index order once every worker has
// returned. Per-page failures are recorded in pageErrors and skipped —
// they never abort the run.
func (o *Orchestrator) fanOut(ctx context.Context, pages []string, issuer string, prompts prompt.Store) (merged []rowvalue.Row, pageErrors []model.PageError, promptID string, err error) {
	workers := o.Config.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(pages) {
		workers = len(pages)
	}
	if workers < 1 {
		workers = 1
	}

	resolved, resolveErr := prompts.ResolvePrompt(ctx, issuer)
	if resolveErr != nil {
		return nil, nil, "", resolveErr
	}
	promptID = resolved.ID

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]pageOutcome, 0, len(pages))

	for idx, text := range pages {
		if text == "" {
			continue
		}
		wg.Add(1)
		go func(pageIndex int, pageText string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pageCtx, cancel := context.WithTimeout(ctx, o.Config.PageTimeout)
			defer cancel()

			expanded := prompt.Expand(resolved.Text, pageText)
			rows, extractErr := o.Extractor.Extract(pageCtx, pageIndex, expanded)
			if extractErr != nil {
				log.Printf("[pipeline] page %d extraction skipped: %v", pageIndex, extractErr)
				kind := "LLM_TRANSPORT_ERROR"
				if engErr, ok := extractErr.(*engineerrors.Error); ok {
					kind = string(engErr.Kind)
				}
				mu.Lock()
				outcomes = append(outcomes, pageOutcome{
					pageIndex: pageIndex,
					pageErr:   &model.PageError{PageIndex: pageIndex, Kind: kind, Message: extractErr.Error()},
				})
				mu.Unlock()
				return
			}

			mu.Lock()
			outcomes = append(outcomes, pageOutcome{pageIndex: pageIndex, rows: rows})
			mu.Unlock()
		}(idx, text)
	}

	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].pageIndex < outcomes[j].pageIndex })

	for _, out := range outcomes {
		if out.pageErr != nil {
			pageErrors = append(pageErrors, *out.pageErr)
			continue
		}
		merged = append(merged, out.rows...)
	}

	return merged, pageErrors, promptID, nil
}

func writeScratchFile(data []byte) (string, error) {
	f, err := os.CreateTemp("", "ingest-scratch-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
