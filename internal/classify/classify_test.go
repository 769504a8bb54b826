package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCompletionClient struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func TestClassify_CanonicalizesKnownIssuer(t *testing.T) {
	c := NewClassifier(&stubCompletionClient{response: "This looks like an ICICI Bank statement"})
	assert.Equal(t, "ICICI", c.Classify(context.Background(), "some statement text"))
}

func TestClassify_ReturnsEmptyOnTransportFailure(t *testing.T) {
	c := NewClassifier(&stubCompletionClient{err: errors.New("timeout")})
	assert.Equal(t, "", c.Classify(context.Background(), "text"))
}

func TestClassify_ReturnsEmptyOnUnknown(t *testing.T) {
	c := NewClassifier(&stubCompletionClient{response: "unknown"})
	assert.Equal(t, "", c.Classify(context.Background(), "text"))
}

func TestClassify_TruncatesLongPage1Text(t *testing.T) {
	stub := &stubCompletionClient{response: "Chase"}
	c := NewClassifier(stub)
	huge := make([]byte, 10000)
	for i := range huge {
		huge[i] = 'a'
	}
	assert.Equal(t, "CHASE", c.Classify(context.Background(), string(huge)))
	assert.Contains(t, stub.lastPrompt, strings.Repeat("a", maxPage1Chars))
	assert.NotContains(t, stub.lastPrompt, strings.Repeat("a", maxPage1Chars+1))
}

func TestClassify_NilClientReturnsEmpty(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, "", c.Classify(context.Background(), "text"))
}
