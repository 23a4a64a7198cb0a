// Package extraction turns uploaded image/PDF bytes into recognized math
// text. A priority-ordered list of provider adapters is tried in turn; the
// orchestrator applies the acceptance policy and aggregates failures.
package extraction

import (
	"context"
	"strings"
	"time"
)

// Result is one provider's recognized output.
type Result struct {
	Text       string
	Normalized string
	Confidence float64
	Method     string
	Duration   time.Duration
}

// Empty reports whether the provider produced no usable text.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Provider is one extraction backend. Implementations must respect ctx and
// return promptly on cancellation; the orchestrator bounds each attempt with
// a timeout.
type Provider interface {
	// Name identifies the provider in results and logs.
	Name() string
	// Attempt extracts text from the given file bytes.
	Attempt(ctx context.Context, data []byte, mimeType string) (Result, error)
}

// FailedError is the terminal extraction error: every provider failed or
// returned empty output. Reasons holds one entry per attempted provider.
type FailedError struct {
	Reasons []string
}

func (e *FailedError) Error() string {
	return "extraction failed: " + strings.Join(e.Reasons, "; ")
}
