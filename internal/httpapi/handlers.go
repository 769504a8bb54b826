// Package httpapi wires the engine to the outside world: a plain net/http
// mux (no Connect-RPC — see DESIGN.md) serving the four endpoints this engine
// describes (ingest, confirm, feedback, download), shaped the way this
// codebase's own extraction_handlers.go logs and responds — JSON bodies,
// structured [stage] log lines, narrow request/response DTOs per handler.
package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/model"
	"github.com/fantomftfw/bankParse/internal/pipeline"
	"github.com/fantomftfw/bankParse/internal/runs"
)

const maxPreviewRows = 5

// Server holds everything an HTTP handler needs: the orchestrator that
// drives ingestion, the run store for confirm/feedback, and the artifact
// store for CSV downloads.
type Server struct {
	Orchestrator   *pipeline.Orchestrator
	RunStore       runs.Store
	Artifacts      ArtifactStore
	MaxUploadBytes int64
}

// NewServer builds a Server.
func NewServer(orchestrator *pipeline.Orchestrator, runStore runs.Store, artifacts ArtifactStore, maxUploadBytes int64) *Server {
	return &Server{
		Orchestrator:   orchestrator,
		RunStore:       runStore,
		Artifacts:      artifacts,
		MaxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the engine's handler mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/confirm", s.handleConfirm)
	mux.HandleFunc("/feedback", s.handleFeedback)
	mux.HandleFunc("/download/", s.handleDownload)
	return mux
}

type ingestResponse struct {
	Message           string               `json:"message"`
	Transactions      []model.CanonicalRow `json:"transactions"`
	FullTransactions  []model.CanonicalRow `json:"fullTransactions"`
	TotalTransactions int                  `json:"totalTransactions"`
	DownloadID        string               `json:"downloadId"`
	RunID             *string              `json:"runId"` // null when the run could not be persisted
}

// handleIngest is the ingestion endpoint: multipart upload of
// a single PDF, media-type and size validation, then the full pipeline run.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		log.Printf("[ingest] rejected: upload too large or malformed: %v", err)
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the maximum allowed size or is malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" field")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	if !isPDF(buf.Bytes()) {
		writeError(w, http.StatusUnsupportedMediaType, "only application/pdf uploads are accepted")
		return
	}

	log.Printf("[ingest] start source=%q bytes=%d", header.Filename, buf.Len())

	result, err := s.Orchestrator.Ingest(r.Context(), buf.Bytes(), header.Filename)
	if err != nil {
		log.Printf("[ingest] FAILED source=%q elapsed=%s err=%v", header.Filename, time.Since(start), err)
		writeEngineError(w, err)
		return
	}

	if s.Artifacts != nil {
		var csvBuf bytes.Buffer
		if err := WriteCSV(&csvBuf, result.Rows); err == nil {
			if err := s.Artifacts.Put(r.Context(), result.DownloadID, csvBuf.Bytes()); err != nil {
				log.Printf("[ingest] artifact write failed download_id=%s err=%v", result.DownloadID, err)
			}
		}
	}

	preview := result.Rows
	if len(preview) > maxPreviewRows {
		preview = preview[:maxPreviewRows]
	}

	log.Printf("[ingest] done source=%q elapsed=%s rows=%d run_id=%s", header.Filename, time.Since(start), len(result.Rows), result.RunID)

	var runID *string
	if result.RunID != "" {
		runID = &result.RunID
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Message:           "statement processed",
		Transactions:      preview,
		FullTransactions:  result.Rows,
		TotalTransactions: len(result.Rows),
		DownloadID:        result.DownloadID,
		RunID:             runID,
	})
}

type confirmRequest struct {
	RunID      string `json:"runId"`
	IsAccurate bool   `json:"isAccurate"`
}

// handleConfirm is the accuracy-confirmation endpoint.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RunID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.RunStore.ConfirmAccuracy(r.Context(), req.RunID, req.IsAccurate); err != nil {
		if engineerrors.IsKind(err, engineerrors.ArtifactNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record confirmation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type feedbackRequest struct {
	RunID         string               `json:"runId"`
	CorrectedData []model.CanonicalRow `json:"correctedData"`
}

type feedbackResponse struct {
	FeedbackID string             `json:"feedbackId"`
	Analysis   model.DiffAnalysis `json:"analysis"`
}

// handleFeedback is the feedback endpoint.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RunID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submission, err := s.RunStore.SubmitFeedback(r.Context(), req.RunID, req.CorrectedData)
	if err != nil {
		if engineerrors.IsKind(err, engineerrors.ArtifactNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	writeJSON(w, http.StatusOK, feedbackResponse{
		FeedbackID: submission.ID,
		Analysis:   submission.Analysis,
	})
}

// handleDownload is the artifact-retrieval endpoint, guarding
// the trailing path segment with the same safe-id pattern Put/Get enforce.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/download/")
	if !ValidArtifactID(id) {
		writeError(w, http.StatusBadRequest, "invalid download id")
		return
	}

	data, err := s.Artifacts.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// pdfMagic is the leading byte sequence of every PDF file.
var pdfMagic = []byte("%PDF")

// isPDF sniffs the upload's own bytes for the PDF magic prefix, rather
// than trusting the client-supplied Content-Type header or filename.
func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps an *engineerrors.Error's Kind onto an HTTP status:
// malformed input and empty results are client errors, everything else
// surfaces as a server error.
func writeEngineError(w http.ResponseWriter, err error) {
	engErr, ok := err.(*engineerrors.Error)
	if !ok {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch engErr.Kind {
	case engineerrors.MalformedSource, engineerrors.NoTextExtracted, engineerrors.NoTransactionsExtracted:
		writeError(w, http.StatusUnprocessableEntity, engErr.Message)
	case engineerrors.NoPromptConfigured:
		writeError(w, http.StatusInternalServerError, engErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, engErr.Message)
	}
}
