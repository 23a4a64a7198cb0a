package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
)

// Parser validates the structurer's output into a ParsedProblem. It is
// idempotent and side-effect-free: the same extraction text produces the
// same structural shape, modulo provider nondeterminism, which is tolerated
// rather than papered over.
type Parser struct {
	structurer Structurer
	logger     *slog.Logger
}

func New(structurer Structurer, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{structurer: structurer, logger: logger}
}

// Parse structures the extracted text and validates the result. The
// normalized form is preferred as model input when present.
func (p *Parser) Parse(ctx context.Context, ext entity.ExtractionResult) (entity.ParsedProblem, error) {
	text := ext.Normalized
	if strings.TrimSpace(text) == "" {
		text = ext.Text
	}
	if strings.TrimSpace(text) == "" {
		return entity.ParsedProblem{}, &FailedError{Field: "text", Reason: "extraction produced no text"}
	}

	raw, err := p.structurer.Structure(ctx, text)
	if err != nil {
		return entity.ParsedProblem{}, fmt.Errorf("structure: %w", err)
	}

	schema := BuildProblemJSONSchema()
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		p.logger.Error("parser.schema_validation_failed", "error", err, "raw_bytes", len(raw))
		return entity.ParsedProblem{}, &FailedError{Field: "structured_output", Reason: err.Error()}
	}

	var out entity.ParsedProblem
	if err := json.Unmarshal(raw, &out); err != nil {
		return entity.ParsedProblem{}, &FailedError{Field: "structured_output", Reason: fmt.Sprintf("unmarshal: %v", err)}
	}

	if err := validateProblem(&out); err != nil {
		p.logger.Error("parser.validation_failed", "error", err, "problem_type", out.Type)
		return entity.ParsedProblem{}, err
	}

	p.logger.Info("parser.ok",
		"problem_type", out.Type,
		"operations", len(out.Operations),
		"variables", len(out.Variables))
	return out, nil
}

// validateProblem enforces the structural rules the schema cannot express:
// the type must be registered and symbolic types need declared variables.
func validateProblem(pp *entity.ParsedProblem) error {
	if !constants.KnownProblemType(pp.Type) {
		return &FailedError{Field: "problem_type", Reason: fmt.Sprintf("unrecognized value %q", pp.Type)}
	}
	if strings.TrimSpace(pp.Statement) == "" {
		return &FailedError{Field: "statement", Reason: "must not be empty"}
	}
	if len(pp.Operations) == 0 {
		return &FailedError{Field: "requested_operations", Reason: "must not be empty"}
	}
	if constants.RequiresVariables(pp.Type) && len(pp.Variables) == 0 {
		return &FailedError{Field: "variables", Reason: fmt.Sprintf("type %q requires at least one variable", pp.Type)}
	}
	return nil
}
