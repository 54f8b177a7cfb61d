package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	failures int
	calls    int
	err      error
}

func (s *scriptedGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return "ok", nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, AttemptTimeout: time.Second}
}

func TestRetryingGenerator_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedGenerator{failures: 2, err: ErrRateLimited}
	gen := NewRetryingGenerator(inner, fastPolicy(), 0, nil)

	out, err := gen.Generate(context.Background(), "p", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingGenerator_ExhaustedRetriesWrapLastError(t *testing.T) {
	inner := &scriptedGenerator{failures: 10, err: ErrEmptyResponse}
	gen := NewRetryingGenerator(inner, fastPolicy(), 0, nil)

	_, err := gen.Generate(context.Background(), "p", 0.3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingGenerator_ContextCancelStopsRetries(t *testing.T) {
	inner := &scriptedGenerator{failures: 10, err: ErrRateLimited}
	gen := NewRetryingGenerator(inner, RetryPolicy{MaxAttempts: 5, InitialDelay: time.Minute}, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "p", 0.3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\nplain\n```":         "plain",
		"no fences":               "no fences",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripFences(in))
	}
}

func TestExtractJSON(t *testing.T) {
	in := "Here is the result:\n```json\n{\"status\": \"pass\"}\n```\nHope that helps."
	assert.Equal(t, `{"status": "pass"}`, ExtractJSON(in))

	arr := "prefix [1, 2, 3] suffix"
	assert.Equal(t, "[1, 2, 3]", ExtractJSON(arr))

	assert.Equal(t, "nothing here", ExtractJSON("nothing here"))
}
