package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/rowvalue"
)

// Extractor submits a fully expanded prompt to a
// CompletionClient and parses the response into RawRows.
type Extractor struct {
	Client      CompletionClient
	RetryConfig RetryConfig
}

// NewExtractor builds an Extractor with the default retry policy
// (up to 2 retries after the first attempt, exponential backoff).
func NewExtractor(client CompletionClient) *Extractor {
	return &Extractor{Client: client, RetryConfig: DefaultCompletionRetryConfig}
}

// Extract submits prompt and returns the parsed RawRow slice. pageIndex is
// used only to scope the returned error for the orchestrator's per-page
// skip policy.
func (e *Extractor) Extract(ctx context.Context, pageIndex int, prompt string) ([]rowvalue.Row, error) {
	raw, err := WithRetry(ctx, e.RetryConfig, func(ctx context.Context) (string, error) {
		return e.Client.Complete(ctx, prompt)
	})
	if err != nil {
		if engErr, ok := err.(*engineerrors.Error); ok {
			engErr.PageIndex = pageIndex
			return nil, engErr
		}
		return nil, engineerrors.ForPage(engineerrors.LlmTransportError, pageIndex, "completion call failed", true, err)
	}

	return ParseResponse(raw, pageIndex)
}

// stripFence removes a leading ```json fence and trailing ``` fence if
// present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx != -1 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "json" || firstLine == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimRight(s, "\n\t "), "```")
	return strings.TrimSpace(s)
}

type transactionsEnvelope struct {
	Transactions []json.RawMessage `json:"transactions"`
}

// ParseResponse fence-strips, JSON-parses,
// accept either a top-level array or a {transactions: [...]} object, and
// reject any element that is not an object.
func ParseResponse(raw string, pageIndex int) ([]rowvalue.Row, error) {
	cleaned := stripFence(raw)
	if cleaned == "" {
		return nil, engineerrors.ForPage(engineerrors.LlmResponseUnparseable, pageIndex, "empty completion response", false, nil)
	}

	var topLevel json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &topLevel); err != nil {
		return nil, engineerrors.ForPage(engineerrors.LlmResponseUnparseable, pageIndex, "completion response is not valid JSON", false, err)
	}

	var elements []json.RawMessage
	trimmed := strings.TrimSpace(string(topLevel))
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(topLevel, &elements); err != nil {
			return nil, engineerrors.ForPage(engineerrors.LlmResponseShapeInvalid, pageIndex, "top-level array is malformed", false, err)
		}
	case strings.HasPrefix(trimmed, "{"):
		var envelope transactionsEnvelope
		if err := json.Unmarshal(topLevel, &envelope); err != nil || envelope.Transactions == nil {
			return nil, engineerrors.ForPage(engineerrors.LlmResponseShapeInvalid, pageIndex, "object response missing transactions array", false, err)
		}
		elements = envelope.Transactions
	default:
		return nil, engineerrors.ForPage(engineerrors.LlmResponseShapeInvalid, pageIndex, "response is neither an array nor a transactions object", false, nil)
	}

	rows := make([]rowvalue.Row, 0, len(elements))
	for _, elem := range elements {
		t := strings.TrimSpace(string(elem))
		if !strings.HasPrefix(t, "{") {
			return nil, engineerrors.ForPage(engineerrors.LlmResponseShapeInvalid, pageIndex, "array element is not an object", false, nil)
		}
		var row rowvalue.Row
		if err := json.Unmarshal(elem, &row); err != nil {
			return nil, engineerrors.ForPage(engineerrors.LlmResponseShapeInvalid, pageIndex, "array element failed to decode", false, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
