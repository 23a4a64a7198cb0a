package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/extraction"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/parser"
	"github.com/anhducmata/myath/internal/solver"
	"github.com/anhducmata/myath/internal/store"
	"github.com/anhducmata/myath/internal/verifier"
)

type stubProvider struct {
	name string
	res  extraction.Result
	err  error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Attempt(context.Context, []byte, string) (extraction.Result, error) {
	return s.res, s.err
}

type stubStructurer struct {
	payload map[string]any
	err     error
}

func (s *stubStructurer) Structure(context.Context, string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, err := json.Marshal(s.payload)
	if err != nil {
		return nil, err
	}
	return b, nil
}

type fixture struct {
	repo  *store.MemoryRepository
	files *filestore.LocalStore
	proc  *Processor
}

func newFixture(t *testing.T, prov extraction.Provider, structurer parser.Structurer) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repo := store.NewMemoryRepository()
	proc := NewProcessor(
		repo,
		files,
		extraction.NewOrchestrator(extraction.Config{}, []extraction.Provider{prov}, logger),
		parser.New(structurer, logger),
		solver.NewRouter(logger),
		verifier.New(logger),
		logger,
	)
	return &fixture{repo: repo, files: files, proc: proc}
}

func (f *fixture) submit(t *testing.T) *entity.Problem {
	t.Helper()
	ref, err := f.files.Put(context.Background(), "problem.png", []byte("fake image bytes"))
	require.NoError(t, err)
	p, err := f.repo.Create(context.Background(), ref)
	require.NoError(t, err)
	return p
}

func TestProcessSolvesQuadratic(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "x^2 + 2x + 1 = 0", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{
			"problem_type":         "equation",
			"statement":            "x^2 + 2x + 1 = 0",
			"requested_operations": []string{"solve"},
			"variables":            []string{"x"},
		}},
	)
	p := f.submit(t)
	require.NoError(t, f.proc.Process(context.Background(), p.ID))

	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, got.Status)
	require.NotNil(t, got.Extraction)
	require.NotNil(t, got.Parsed)
	require.NotNil(t, got.Solution)
	assert.Equal(t, []string{"-1"}, got.Solution.Results)
	assert.NotEmpty(t, got.Solution.Steps)
	require.NotNil(t, got.Solution.Verified)
	assert.True(t, *got.Solution.Verified)
	assert.Nil(t, got.Error)
}

func TestProcessDivisionByZeroFailsAtSolving(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "2/0", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{
			"problem_type":         "simplify",
			"statement":            "2/0",
			"requested_operations": []string{"simplify"},
		}},
	)
	p := f.submit(t)
	require.NoError(t, f.proc.Process(context.Background(), p.ID))

	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, constants.StageSolving, got.Error.Stage)
	assert.Equal(t, constants.KindSolveFailed, got.Error.Kind)
	// Stage outputs before the failure point are preserved.
	assert.NotNil(t, got.Extraction)
	assert.NotNil(t, got.Parsed)
	assert.Nil(t, got.Solution)
}

func TestProcessEmptyExtractionFails(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{}},
		&stubStructurer{payload: map[string]any{}},
	)
	p := f.submit(t)
	require.NoError(t, f.proc.Process(context.Background(), p.ID))

	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, constants.StageExtraction, got.Error.Stage)
	assert.Equal(t, constants.KindExtractionFailed, got.Error.Kind)
	assert.Nil(t, got.Extraction)
}

func TestProcessUnsupportedProblemType(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "a train leaves the station", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{
			"problem_type":         "word_problem",
			"statement":            "a train leaves the station at 3pm",
			"requested_operations": []string{"solve"},
		}},
	)
	p := f.submit(t)
	require.NoError(t, f.proc.Process(context.Background(), p.ID))

	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, constants.StageSolving, got.Error.Stage)
	assert.Equal(t, constants.KindUnsupportedProblem, got.Error.Kind)
	assert.NotNil(t, got.Parsed)
}

func TestProcessParseValidationFails(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "solve x", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{
			"problem_type":         "derivative",
			"statement":            "x^2",
			"requested_operations": []string{"differentiate"},
			// missing variables for a type that needs them
		}},
	)
	p := f.submit(t)
	require.NoError(t, f.proc.Process(context.Background(), p.ID))

	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, constants.StageParsing, got.Error.Stage)
	assert.Equal(t, constants.KindParseFailed, got.Error.Kind)
}

func TestProcessTerminalIsNoOp(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "x = 1", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{}},
	)
	p := f.submit(t)
	require.NoError(t, f.repo.Fail(context.Background(), p.ID, &entity.StageError{
		Stage: constants.StageExtraction, Kind: constants.KindExtractionFailed, Message: "earlier run",
	}))

	require.NoError(t, f.proc.Process(context.Background(), p.ID))

	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	assert.Equal(t, "earlier run", got.Error.Message)
}

func TestProcessMissingFileIsInfrastructureError(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "x = 1", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{}},
	)
	p, err := f.repo.Create(context.Background(), "gone.png")
	require.NoError(t, err)

	err = f.proc.Process(context.Background(), p.ID)
	require.Error(t, err)

	// Not failed: the problem stays re-runnable once the file is back.
	got, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusProcessing, got.Status)
	assert.Nil(t, got.Error)
}

func TestProcessIsIdempotentAfterCompletion(t *testing.T) {
	f := newFixture(t,
		&stubProvider{name: "mistral", res: extraction.Result{Text: "2x + 4 = 0", Confidence: 0.9}},
		&stubStructurer{payload: map[string]any{
			"problem_type":         "equation",
			"statement":            "2x + 4 = 0",
			"requested_operations": []string{"solve"},
			"variables":            []string{"x"},
		}},
	)
	p := f.submit(t)
	require.NoError(t, f.proc.Process(context.Background(), p.ID))
	first, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)

	require.NoError(t, f.proc.Process(context.Background(), p.ID))
	second, err := f.repo.Get(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, constants.StatusCompleted, second.Status)
	assert.Equal(t, first, second)
}
