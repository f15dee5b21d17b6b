package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestSaveAndGetModel(t *testing.T) {
	repo := setupRepository(t)

	rec := NewModelRecord("", "churn", "1.0", "regression", `{"name":"churn"}`)
	require.Len(t, rec.ID, 36)
	require.NoError(t, repo.SaveModel(rec))

	got, err := repo.GetModel(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "churn", got.Name)
	assert.Equal(t, "1.0", got.Version)
	assert.Equal(t, "regression", got.Kind)
	assert.Equal(t, `{"name":"churn"}`, got.Document)

	byName, err := repo.GetModelByName("churn")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byName.ID)
}

func TestSaveModelReplacesDocument(t *testing.T) {
	repo := setupRepository(t)

	rec := NewModelRecord("m1", "churn", "", "regression", `{"v":1}`)
	require.NoError(t, repo.SaveModel(rec))

	rec.Version = "2"
	rec.Document = `{"v":2}`
	require.NoError(t, repo.SaveModel(rec))

	got, err := repo.GetModel("m1")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Version)
	assert.Equal(t, `{"v":2}`, got.Document)

	all, err := repo.ListModels()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveModelDuplicateName(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.SaveModel(NewModelRecord("a", "churn", "", "regression", "{}")))
	assert.Error(t, repo.SaveModel(NewModelRecord("b", "churn", "", "regression", "{}")))
}

func TestGetModelNotFound(t *testing.T) {
	repo := setupRepository(t)

	_, err := repo.GetModel("missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNotFound))

	_, err = repo.GetModelByName("missing")
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNotFound))

	err = repo.DeleteModel("missing")
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNotFound))
}

func TestListModelsOrdered(t *testing.T) {
	repo := setupRepository(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, repo.SaveModel(NewModelRecord("", name, "", "scorecard", "{}")))
	}

	all, err := repo.ListModels()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}

func TestEvaluationAudit(t *testing.T) {
	repo := setupRepository(t)
	require.NoError(t, repo.SaveModel(NewModelRecord("m1", "churn", "", "regression", "{}")))

	for i := 0; i < 5; i++ {
		rec := NewEvaluationRecord("m1", time.Duration(i)*time.Microsecond, fmt.Sprintf(`{"y":%d}`, i), nil)
		require.NoError(t, repo.RecordEvaluation(rec))
	}
	failed := NewEvaluationRecord("m1", time.Microsecond, `{"y":9}`, errors.New("bad input"))
	assert.Empty(t, failed.Result)
	require.NoError(t, repo.RecordEvaluation(failed))

	total, errs, err := repo.CountEvaluations("m1")
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, 1, errs)

	recent, err := repo.ListEvaluations("m1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, StatusError, recent[0].Status)
	assert.Equal(t, "bad input", recent[0].Error)
	assert.Equal(t, `{"y":4}`, recent[1].Result)
	assert.Equal(t, int64(4), recent[1].DurationUS)
}

func TestDeleteModelRemovesEvaluations(t *testing.T) {
	repo := setupRepository(t)
	require.NoError(t, repo.SaveModel(NewModelRecord("m1", "churn", "", "regression", "{}")))
	require.NoError(t, repo.RecordEvaluation(NewEvaluationRecord("m1", time.Microsecond, "{}", nil)))

	require.NoError(t, repo.DeleteModel("m1"))

	total, _, err := repo.CountEvaluations("m1")
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = repo.GetModel("m1")
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNotFound))
}

func TestPoolStats(t *testing.T) {
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	stats := db.GetPoolStats()
	assert.Equal(t, 8, stats["max_open_connections"])

	_, err = db.GetPreparedStatement("nope")
	assert.Error(t, err)
}
