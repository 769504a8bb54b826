package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/fantomftfw/bankParse/internal/classify"
	"github.com/fantomftfw/bankParse/internal/config"
	"github.com/fantomftfw/bankParse/internal/httpapi"
	"github.com/fantomftfw/bankParse/internal/llm"
	"github.com/fantomftfw/bankParse/internal/model"
	"github.com/fantomftfw/bankParse/internal/pipeline"
	"github.com/fantomftfw/bankParse/internal/prompt"
	"github.com/fantomftfw/bankParse/internal/runs"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var runStore runs.Store
	var promptStore prompt.Store

	if cfg.UseMemoryStore {
		log.Println("Using in-memory run/prompt stores for local development")
		memRuns := runs.NewMemoryStore()
		memPrompts := prompt.NewMemoryStore()
		memPrompts.Upsert(defaultPrompt())
		runStore = memRuns
		promptStore = memPrompts
	} else {
		projectID := cfg.GoogleCloudProject
		if projectID == "" {
			log.Fatal("GOOGLE_CLOUD_PROJECT must be set when USE_MEMORY_STORE is not true")
		}

		firestoreClient, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			log.Fatalf("failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		runStore = runs.NewFirestoreStore(firestoreClient)
		memPrompts := prompt.NewMemoryStore() // issuer-tagged prompts still live in code until a Firestore-backed admin surface exists
		memPrompts.Upsert(defaultPrompt())
		promptStore = memPrompts
	}

	var artifacts httpapi.ArtifactStore
	if cfg.ArtifactBucket != "" {
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatalf("failed to create Cloud Storage client: %v", err)
		}
		defer gcsClient.Close()
		artifacts = httpapi.NewGCSArtifactStore(gcsClient, cfg.ArtifactBucket)
		log.Printf("artifact storage: gs://%s", cfg.ArtifactBucket)
	} else {
		diskStore, err := httpapi.NewDiskArtifactStore(cfg.ArtifactDir)
		if err != nil {
			log.Fatalf("failed to create artifact directory %q: %v", cfg.ArtifactDir, err)
		}
		artifacts = diskStore
		log.Printf("artifact storage: disk at %s", cfg.ArtifactDir)
	}

	if cfg.LlmAPIKey == "" {
		log.Println("WARNING: LLM_API_KEY is not set; extraction calls will fail at the transport layer")
	}
	geminiClient := llm.NewGeminiClient(cfg.LlmAPIKey, cfg.LlmModel, cfg.LlmBaseURL, cfg.PageTimeout)
	extractor := llm.NewExtractor(geminiClient)
	classifier := classify.NewClassifier(geminiClient)

	orchestrator := pipeline.NewOrchestrator(classifier, promptStore, extractor, runStore, pipeline.Config{
		MaxWorkers:      cfg.WorkerPoolSize,
		PageTimeout:     cfg.PageTimeout,
		PipelineTimeout: cfg.PipelineTimeout,
		ModelTag:        cfg.LlmModel,
	})

	server := httpapi.NewServer(orchestrator, runStore, artifacts, cfg.MaxUploadBytes)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/", server.Routes())

	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:1234",
			"http://127.0.0.1:1234",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
		},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	log.Printf("starting server on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// defaultPrompt is the engine's built-in default extraction prompt slot,
// used whenever no issuer-specific prompt has been configured.
func defaultPrompt() model.Prompt {
	return model.Prompt{
		ID:        "default",
		IssuerTag: "",
		IsActive:  true,
		IsDefault: true,
		Version:   1,
		Text: `You are extracting transaction rows from one page of a bank statement.

Statement text:
${textContent}

Return a JSON array of objects, one per transaction row. Each object's keys
are the column headings as they literally appear in the statement (e.g.
"Date", "Description", "Debit", "Credit", "Balance"). Do not rename, merge,
or invent columns. Return only the JSON array, no commentary.`,
	}
}
