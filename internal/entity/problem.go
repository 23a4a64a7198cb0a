package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/constants"
)

// Problem is the aggregate root for one submitted math problem. Stage fields
// are append-only: once set they are never cleared, only the next stage's
// field is added. Mutation goes exclusively through the pipeline processor
// and the problem repository.
type Problem struct {
	ID         uuid.UUID                `json:"id"`
	Status     constants.ProblemStatus  `json:"status"`
	FileRef    string                   `json:"file_reference"`
	Extraction *ExtractionResult        `json:"extraction_result,omitempty"`
	Parsed     *ParsedProblem           `json:"parsed_problem,omitempty"`
	Solution   *Solution                `json:"solution,omitempty"`
	Error      *StageError              `json:"error,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// Terminal reports whether the problem reached a final state.
func (p *Problem) Terminal() bool {
	return p.Status.Terminal()
}

// ExtractionResult is the output of the extraction stage.
type ExtractionResult struct {
	Text       string  `json:"text"`
	Normalized string  `json:"normalized_form"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// ParsedProblem is the structured statement produced by the parsing stage.
type ParsedProblem struct {
	Type       constants.ProblemType `json:"problem_type"`
	Statement  string                `json:"statement"`
	Operations []string              `json:"requested_operations"`
	Variables  []string              `json:"variables,omitempty"`
	Options    []string              `json:"options,omitempty"`
	Bounds     *Bounds               `json:"bounds,omitempty"`
}

// Bounds holds definite-integral limits as symbolic-ready strings.
type Bounds struct {
	Lower string `json:"lower"`
	Upper string `json:"upper"`
}

// Solution is the output of the solving stage. Results order is significant
// when multiple roots or branches exist; Steps order is the derivation order
// and must not be reordered.
type Solution struct {
	Results    []string `json:"result"`
	Steps      []Step   `json:"steps"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
	Verified   *bool    `json:"verification_passed,omitempty"`
}

// Step is one explanation step. Number is 1-based and contiguous, matching
// the step's position in Solution.Steps.
type Step struct {
	Number       int    `json:"step_number"`
	Description  string `json:"description"`
	SymbolicForm string `json:"symbolic_form"`
	Explanation  string `json:"explanation"`
}

// StageError is the structured failure stored on a failed problem. Exactly
// one stage and one kind, always with a human-readable message.
type StageError struct {
	Stage   constants.Stage     `json:"stage"`
	Kind    constants.ErrorKind `json:"kind"`
	Message string              `json:"message"`
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
}
