package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
	res  Result
	err  error
	wait time.Duration
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Attempt(ctx context.Context, _ []byte, _ string) (Result, error) {
	if s.wait > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.wait):
		}
	}
	return s.res, s.err
}

func newTestOrchestrator(providers ...Provider) *Orchestrator {
	return NewOrchestrator(Config{AcceptConfidence: 0.7, ProviderTimeout: 50 * time.Millisecond}, providers, nil)
}

func TestFallbackToNextProvider(t *testing.T) {
	o := newTestOrchestrator(
		&stubProvider{name: "primary", err: errors.New("rate limited")},
		&stubProvider{name: "secondary", res: Result{Text: "x + 1 = 2", Confidence: 0.9}},
	)
	res, err := o.Extract(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "secondary", res.Method)
	assert.Equal(t, "x + 1 = 2", res.Text)
}

func TestTimeoutIsLocalRecovery(t *testing.T) {
	o := newTestOrchestrator(
		&stubProvider{name: "slow", wait: time.Second, res: Result{Text: "never", Confidence: 0.9}},
		&stubProvider{name: "fast", res: Result{Text: "2 + 2", Confidence: 0.8}},
	)
	res, err := o.Extract(context.Background(), nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Method)
}

func TestHighConfidenceShortCircuits(t *testing.T) {
	second := &stubProvider{name: "second", res: Result{Text: "unused", Confidence: 0.99}}
	o := newTestOrchestrator(
		&stubProvider{name: "first", res: Result{Text: "x^2", Confidence: 0.95}},
		second,
	)
	res, err := o.Extract(context.Background(), nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "first", res.Method)
}

func TestLastResortAcceptance(t *testing.T) {
	// every provider is below threshold; the final provider's non-empty
	// output is accepted anyway, even when an earlier one scored higher
	o := newTestOrchestrator(
		&stubProvider{name: "first", res: Result{Text: "less fuzzy", Confidence: 0.5}},
		&stubProvider{name: "last", res: Result{Text: "fuzzy", Confidence: 0.3}},
	)
	res, err := o.Extract(context.Background(), nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "last", res.Method)
	assert.Equal(t, "fuzzy", res.Text)
}

func TestBestEffortWhenFinalProviderFails(t *testing.T) {
	// the final provider produced nothing, so the best earlier low-confidence
	// output is used instead of failing extraction outright
	o := newTestOrchestrator(
		&stubProvider{name: "a", res: Result{Text: "fuzzy", Confidence: 0.3}},
		&stubProvider{name: "b", res: Result{Text: "less fuzzy", Confidence: 0.5}},
		&stubProvider{name: "c", err: errors.New("rate limited")},
	)
	res, err := o.Extract(context.Background(), nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Method)
	assert.Equal(t, "less fuzzy", res.Text)
}

func TestAllEmptyFails(t *testing.T) {
	o := newTestOrchestrator(
		&stubProvider{name: "a", res: Result{Text: "   ", Confidence: 0.9}},
		&stubProvider{name: "b", err: errors.New("boom")},
	)
	_, err := o.Extract(context.Background(), nil, "image/png")
	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Len(t, failed.Reasons, 2)
}

func TestNormalizeFallsBackOnProviderText(t *testing.T) {
	o := newTestOrchestrator(
		&stubProvider{name: "a", res: Result{Text: "2 × 3 − 1", Confidence: 0.9}},
	)
	res, err := o.Extract(context.Background(), nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "2 * 3 - 1", res.Normalized)
}

func TestHeuristicConfidence(t *testing.T) {
	assert.Zero(t, heuristicConfidence("  "))
	low := heuristicConfidence("some prose with no math at all")
	high := heuristicConfidence("x^2 + 2x + 1 = 0")
	assert.Greater(t, high, low)
}
