// Package parser turns raw extracted text into a structured problem
// statement. The structuring itself is delegated to an external
// language-understanding capability; validation of whatever comes back is
// this package's job.
package parser

import (
	"context"
	"fmt"
)

// Structurer is the external capability that structures free text into the
// problem JSON shape. It is schema-unaware on the wire and treated as
// unreliable: output may be malformed or only partially structured.
type Structurer interface {
	Structure(ctx context.Context, text string) ([]byte, error)
}

// FailedError is the terminal parse error, naming the field that failed
// validation. Structurally malformed output from the same input is unlikely
// to repair itself, so this is never retried locally.
type FailedError struct {
	Field  string
	Reason string
}

func (e *FailedError) Error() string {
	if e.Field == "" {
		return "parse failed: " + e.Reason
	}
	return fmt.Sprintf("parse failed: field %q: %s", e.Field, e.Reason)
}
