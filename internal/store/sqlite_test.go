package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

func configStore(driver, url string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, DatabaseURL: url}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string) model.Run {
	return model.Run{
		ID: id,
		Filter: model.SearchFilter{
			Companies:      []string{"Acme"},
			Universities:   []string{"MIT"},
			Titles:         []string{"Engineer"},
			ProfilesNeeded: 3,
		},
		Status:         model.RunStatusRunning,
		ProfilesNeeded: 3,
		OutputDir:      "/tmp/out/" + id,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, sampleRun("run-1")))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, []string{"Acme"}, got.Filter.Companies)
	assert.Equal(t, 3, got.ProfilesNeeded)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.FinishRun(ctx, "run-1", model.RunStatusCompleted, "/tmp/out/run-1/detailed_profiles.csv"))

	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, "/tmp/out/run-1/detailed_profiles.csv", got.ResultPath)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteStore_FinishRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.FinishRun(context.Background(), "missing", model.RunStatusFailed, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := sampleRun(id)
		run.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateRun(ctx, run))
	}
	require.NoError(t, s.FinishRun(ctx, "run-2", model.RunStatusCompleted, "x.csv"))

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// Newest first.
	assert.Equal(t, "run-3", runs[0].ID)

	completed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "run-2", completed[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-2", limited[0].ID)
}

func TestSQLiteStore_SaveArtifact(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, sampleRun("run-1")))
	art := model.PageArtifact{
		Version:    model.ArtifactVersion,
		Page:       1,
		RawContent: "content",
		Candidates: []model.RawCandidate{{Name: "Ada", URL: "https://x/in/ada"}},
	}
	require.NoError(t, s.SaveArtifact(ctx, "run-1", art))
}

func TestSQLiteStore_OutcomeUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, sampleRun("run-1")))

	rec := model.ProfileRecord{ID: "1", Name: "Ada", URL: "https://x/in/ada", Status: model.ProfileStatusPending, Message: "Profile discovered"}
	require.NoError(t, s.SaveOutcome(ctx, "run-1", rec))

	rec.Status = model.ProfileStatusCompleted
	rec.Message = "Hi Ada!"
	require.NoError(t, s.SaveOutcome(ctx, "run-1", rec))

	records, err := s.ListOutcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.ProfileStatusCompleted, records[0].Status)
	assert.Equal(t, "Hi Ada!", records[0].Message)
}

func TestSQLiteStore_ListOutcomes_OrderedByID(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, sampleRun("run-1")))
	for _, id := range []string{"10", "2", "1"} {
		rec := model.ProfileRecord{ID: id, Name: "P" + id, URL: "https://x/in/" + id, Status: model.ProfileStatusPending}
		require.NoError(t, s.SaveOutcome(ctx, "run-1", rec))
	}

	records, err := s.ListOutcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "2", "10"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), configStore("mysql", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLiteDefault(t *testing.T) {
	s, err := Open(context.Background(), configStore("", filepath.Join(t.TempDir(), "o.db")))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
}
