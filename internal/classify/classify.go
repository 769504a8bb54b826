// Package classify implements the bank classifier: from a statement's first
// page it asks the completion client for a canonical issuer tag. It is
// advisory only — any failure yields "", never a run-level error.
package classify

import (
	"context"
	"strings"

	"github.com/fantomftfw/bankParse/internal/llm"
)

const maxPage1Chars = 2000

// canonicalizations maps a recognizable substring of the model's raw
// answer onto the engine's canonical issuer tag, following this
// codebase's own substring-canonicalization map-literal style (see
// normalizer.go's merchantMappings).
var canonicalizations = map[string]string{
	"ICICI":    "ICICI",
	"HDFC":     "HDFC",
	"SBI":      "SBI",
	"AXIS":     "AXIS",
	"KOTAK":    "KOTAK",
	"CHASE":    "CHASE",
	"CITI":     "CITIBANK",
	"WELLS":    "WELLS_FARGO",
	"BOFA":     "BANK_OF_AMERICA",
	"AMERICA":  "BANK_OF_AMERICA",
}

const identificationPrompt = `You are identifying the issuing bank of a bank statement from its first page. Reply with a single line containing only the bank's name, or "unknown" if you cannot tell.

Statement text:
${textContent}`

// Classifier identifies the issuing bank from a statement's leading text.
type Classifier struct {
	Client llm.CompletionClient
}

// NewClassifier builds a Classifier.
func NewClassifier(client llm.CompletionClient) *Classifier {
	return &Classifier{Client: client}
}

// Classify returns a canonical issuer tag, or "" when classification is
// not possible — never an error ("any I/O failure yields
// null").
func (c *Classifier) Classify(ctx context.Context, page1Text string) string {
	if c.Client == nil {
		return ""
	}
	truncated := page1Text
	if len(truncated) > maxPage1Chars {
		truncated = truncated[:maxPage1Chars]
	}

	prompt := strings.ReplaceAll(identificationPrompt, "${textContent}", truncated)
	response, err := c.Client.Complete(ctx, prompt)
	if err != nil {
		return ""
	}

	return canonicalize(response)
}

func canonicalize(response string) string {
	line := strings.TrimSpace(response)
	if idx := strings.IndexAny(line, "\r\n"); idx != -1 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	if line == "" || len(line) > 50 || strings.EqualFold(line, "unknown") {
		return ""
	}

	upper := strings.ToUpper(line)
	for substr, tag := range canonicalizations {
		if strings.Contains(upper, substr) {
			return tag
		}
	}
	return upper
}
