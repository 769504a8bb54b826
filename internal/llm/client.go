// Package llm implements the LLM extractor's text-completion boundary: a
// narrow CompletionClient interface (the "LLM provider SDK" collaborator
// that's treated as out of scope for the core engine) plus one concrete
// implementation that talks to a Gemini-compatible REST endpoint the way
// this codebase's own extraction service does — a raw net/http POST, not
// a vendor SDK.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
)

//go:generate mockgen -source=client.go -destination=client_mock.go -package=llm

// CompletionClient is the narrow interface the engine uses to submit a
// fully expanded prompt and receive the model's raw text response. The
// classifier and the extractor are both callers; neither depends on any particular provider.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient is a CompletionClient backed by Gemini's generateContent
// REST endpoint, called directly over HTTP — grounded on this codebase's
// own extractWithGemini, which never imports a Gemini SDK.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient builds a GeminiClient. model defaults to
// "gemini-1.5-flash" when empty, and baseURL to Gemini's own REST host
// when empty, so callers can point this at a compatible proxy or test
// double via LLM_PROVIDER_BASE_URL without touching the code.
func NewGeminiClient(apiKey, model, baseURL string, callTimeout time.Duration) *GeminiClient {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: callTimeout,
		},
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete submits prompt and returns the model's raw text response.
// Every failure is an *engineerrors.Error with Kind LlmTransportError.
// Retryable is true only for a failed request or body read and for HTTP
// 429 and 5xx responses; other failures are not retryable.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: map[string]interface{}{
			"temperature":     0.1,
			"maxOutputTokens": 8192,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", engineerrors.Wrap(engineerrors.LlmTransportError, "marshal completion request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", engineerrors.Wrap(engineerrors.LlmTransportError, "build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &engineerrors.Error{Kind: engineerrors.LlmTransportError, Message: "completion request failed", PageIndex: -1, Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &engineerrors.Error{Kind: engineerrors.LlmTransportError, Message: "read completion response", PageIndex: -1, Retryable: true, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", &engineerrors.Error{
			Kind:      engineerrors.LlmTransportError,
			Message:   fmt.Sprintf("completion API error (HTTP %d): %s", resp.StatusCode, string(respBody)),
			PageIndex: -1,
			Retryable: retryable,
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", engineerrors.Wrap(engineerrors.LlmTransportError, "unmarshal completion envelope", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", engineerrors.New(engineerrors.LlmTransportError, "completion response carried no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
