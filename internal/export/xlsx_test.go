package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/store"
)

func TestWriteXLSX(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryRepository()

	solved, err := repo.Create(ctx, "uploads/a.png")
	require.NoError(t, err)
	require.NoError(t, repo.SaveParsed(ctx, solved.ID, &entity.ParsedProblem{
		Type: constants.TypeEquation, Statement: "2x + 4 = 0",
		Operations: []string{"solve"}, Variables: []string{"x"},
	}))
	require.NoError(t, repo.SaveSolution(ctx, solved.ID, &entity.Solution{
		Results: []string{"-2"}, Confidence: 0.95, Method: "linear",
		Steps: []entity.Step{{Number: 1, Description: "solve", SymbolicForm: "-2"}},
	}))
	require.NoError(t, repo.SetVerification(ctx, solved.ID, true))
	require.NoError(t, repo.Complete(ctx, solved.ID))

	failed, err := repo.Create(ctx, "uploads/b.pdf")
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, failed.ID, &entity.StageError{
		Stage: constants.StageExtraction, Kind: constants.KindExtractionFailed, Message: "no text found",
	}))

	var buf bytes.Buffer
	require.NoError(t, NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))).WriteXLSX(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Problems")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Status", rows[0][1])

	byID := map[string][]string{}
	for _, row := range rows[1:] {
		byID[row[0]] = row
	}
	solvedRow := byID[solved.ID.String()]
	require.NotNil(t, solvedRow)
	assert.Equal(t, "completed", solvedRow[1])
	assert.Equal(t, "equation", solvedRow[3])
	assert.Equal(t, "-2", solvedRow[5])

	failedRow := byID[failed.ID.String()]
	require.NotNil(t, failedRow)
	assert.Equal(t, "failed", failedRow[1])
	assert.Equal(t, "extraction", failedRow[9])
	assert.Equal(t, "no text found", failedRow[10])
}
