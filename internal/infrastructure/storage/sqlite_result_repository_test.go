package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteResultRepository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteResultRepository(db, nil)
}

func TestSQLiteResultRepository_RoundTrip(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()
	run := sampleRun()

	id, err := repo.SaveRun(ctx, run)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := repo.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, "/data", got.RootPath)
	require.Equal(t, run.Stats.ProcessedImages, got.Stats.ProcessedImages)
	require.Equal(t, run.Stats.TotalDetections, got.Stats.TotalDetections)
	require.True(t, run.Stats.StartedAt.Equal(got.Stats.StartedAt))
	require.True(t, run.Stats.FinishedAt.Equal(got.Stats.FinishedAt))

	require.Len(t, got.Folders, 2)
	cats := got.Folders[0]
	require.Equal(t, "cats", cats.Name)
	require.Equal(t, "/data/cats", cats.Path)
	require.True(t, cats.Processed)
	require.Equal(t, 2, cats.ImageCount)
	require.Equal(t, 2, cats.TotalDetections)

	require.Len(t, cats.Images, 2)
	require.Equal(t, "/data/cats/1.jpg", cats.Images[0].Path)
	require.Equal(t, run.Folders[0].Images[0].Detections, cats.Images[0].Detections)
	require.Equal(t, "Error processing image: corrupt file", cats.Images[1].Metadata)
	require.Empty(t, cats.Images[1].Detections)
	require.Nil(t, cats.Images[0].Image)

	dogs := got.Folders[1]
	require.False(t, dogs.Processed)
	require.Len(t, dogs.Images, 1)
	require.False(t, dogs.Images[0].Processed)
}

func TestSQLiteResultRepository_NotFound(t *testing.T) {
	repo := newTestSQLite(t)

	_, err := repo.GetRun(context.Background(), 7)
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteResultRepository_ListRuns(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	runs, err := repo.ListRuns(ctx)
	require.NoError(t, err)
	require.Empty(t, runs)

	first, err := repo.SaveRun(ctx, sampleRun())
	require.NoError(t, err)
	second, err := repo.SaveRun(ctx, sampleRun())
	require.NoError(t, err)

	runs, err = repo.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second, runs[0].ID)
	require.Equal(t, first, runs[1].ID)
	require.Empty(t, runs[0].Folders)
}
