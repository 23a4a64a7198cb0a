package constants

// ProblemStatus is the canonical lifecycle status of a problem record.
type ProblemStatus string

// Stable values (store these exact strings).
const (
	StatusQueued     ProblemStatus = "queued"     // accepted, waiting for a worker
	StatusProcessing ProblemStatus = "processing" // pipeline running
	StatusCompleted  ProblemStatus = "completed"  // terminal: solution present
	StatusFailed     ProblemStatus = "failed"     // terminal: structured error present
)

// Terminal reports whether no further transitions are allowed from s.
func (s ProblemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage names one step of the processing pipeline. Stored on failure records
// so a failed problem is always attributable to exactly one stage.
type Stage string

const (
	StageExtraction   Stage = "extraction"
	StageParsing      Stage = "parsing"
	StageSolving      Stage = "solving"
	StageVerification Stage = "verification"
)

// ErrorKind classifies a stage failure. Kinds are stable strings kept in the
// stored error so callers can tell "not supported yet" from "tried and failed".
type ErrorKind string

const (
	KindExtractionFailed   ErrorKind = "EXTRACTION_FAILED"
	KindParseFailed        ErrorKind = "PARSE_FAILED"
	KindUnsupportedProblem ErrorKind = "UNSUPPORTED_PROBLEM"
	KindSolveFailed        ErrorKind = "SOLVE_FAILED"
)
