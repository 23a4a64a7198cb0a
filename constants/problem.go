package constants

// ProblemType classifies a parsed problem. The set is open-ended: the parser
// accepts any registered value and the solver router answers "unsupported"
// for types it has no strategy for, so adding a type never changes either
// component's contract.
type ProblemType string

const (
	TypeEquation    ProblemType = "equation"
	TypeSystem      ProblemType = "system"
	TypeInequality  ProblemType = "inequality"
	TypeDerivative  ProblemType = "derivative"
	TypeIntegral    ProblemType = "integral"
	TypeSimplify    ProblemType = "simplify"
	TypeWordProblem ProblemType = "word_problem"
	TypeMCQ         ProblemType = "mcq"
	TypeOther       ProblemType = "other"
)

var knownTypes = map[ProblemType]struct{}{
	TypeEquation:    {},
	TypeSystem:      {},
	TypeInequality:  {},
	TypeDerivative:  {},
	TypeIntegral:    {},
	TypeSimplify:    {},
	TypeWordProblem: {},
	TypeMCQ:         {},
	TypeOther:       {},
}

// symbolicTypes require at least one declared variable to be solvable.
var symbolicTypes = map[ProblemType]struct{}{
	TypeEquation:   {},
	TypeSystem:     {},
	TypeInequality: {},
	TypeDerivative: {},
	TypeIntegral:   {},
}

// KnownProblemType reports whether t is a registered problem type.
func KnownProblemType(t ProblemType) bool {
	_, ok := knownTypes[t]
	return ok
}

// RegisterProblemType extends the recognized type set. Meant for init-time
// wiring when a deployment parses types this build has no solver for; the
// router answers unsupported for them rather than the parser rejecting the
// problem outright.
func RegisterProblemType(t ProblemType, requiresVariables bool) {
	knownTypes[t] = struct{}{}
	if requiresVariables {
		symbolicTypes[t] = struct{}{}
	}
}

// RequiresVariables reports whether t needs a non-empty variable set.
func RequiresVariables(t ProblemType) bool {
	_, ok := symbolicTypes[t]
	return ok
}

// ProblemTypeNames returns the registered type names as plain strings,
// in a stable order suitable for prompts and schemas.
func ProblemTypeNames() []string {
	return []string{
		string(TypeEquation), string(TypeSystem), string(TypeInequality),
		string(TypeDerivative), string(TypeIntegral), string(TypeSimplify),
		string(TypeWordProblem), string(TypeMCQ), string(TypeOther),
	}
}
