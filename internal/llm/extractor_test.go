package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
)

func TestParseResponse_StripsFenceAndParsesArray(t *testing.T) {
	raw := "```json\n[{\"date\":\"01/04/2024\",\"amount\":10}]\n```"
	rows, err := ParseResponse(raw, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01/04/2024", rows[0]["date"].AsString())
}

func TestParseResponse_AcceptsTransactionsEnvelope(t *testing.T) {
	raw := `{"transactions":[{"date":"01/04/2024"},{"date":"02/04/2024"}]}`
	rows, err := ParseResponse(raw, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseResponse_RejectsNonObjectElement(t *testing.T) {
	raw := `[1, 2, 3]`
	_, err := ParseResponse(raw, 0)
	require.Error(t, err)
	assert.True(t, engineerrors.IsKind(err, engineerrors.LlmResponseShapeInvalid))
}

func TestParseResponse_RejectsMalformedJSON(t *testing.T) {
	_, err := ParseResponse("not json at all", 2)
	require.Error(t, err)
	assert.True(t, engineerrors.IsKind(err, engineerrors.LlmResponseUnparseable))
	engErr, ok := err.(*engineerrors.Error)
	require.True(t, ok)
	assert.Equal(t, 2, engErr.PageIndex)
}

func TestParseResponse_RejectsObjectWithoutTransactions(t *testing.T) {
	_, err := ParseResponse(`{"foo":"bar"}`, 0)
	require.Error(t, err)
	assert.True(t, engineerrors.IsKind(err, engineerrors.LlmResponseShapeInvalid))
}

type stubClient struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("stubClient: ran out of canned responses")
}

func TestExtractor_Extract_TagsPageIndexOnFailure(t *testing.T) {
	client := &stubClient{errs: []error{engineerrors.ForPage(engineerrors.LlmTransportError, -1, "boom", false, nil)}}
	extractor := NewExtractor(client)

	_, err := extractor.Extract(context.Background(), 7, "prompt")
	require.Error(t, err)
	engErr, ok := err.(*engineerrors.Error)
	require.True(t, ok)
	assert.Equal(t, 7, engErr.PageIndex)
}

func TestExtractor_Extract_RetriesThenSucceeds(t *testing.T) {
	client := &stubClient{
		errs:      []error{engineerrors.ForPage(engineerrors.LlmTransportError, -1, "transient", true, nil), nil},
		responses: []string{"", `[{"date":"x"}]`},
	}
	extractor := NewExtractor(client)
	extractor.RetryConfig.InitialDelay = 0
	extractor.RetryConfig.MaxDelay = 0

	rows, err := extractor.Extract(context.Background(), 0, "prompt")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, client.calls)
}
