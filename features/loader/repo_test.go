package loader_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"corpora/backend/features/loader"
	"corpora/backend/internal/ingest"
)

func TestPostgresRepo_CreateBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := loader.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ingest_batches (source_count) VALUES ($1) RETURNING id")).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("batch-1"))

		id, err := repo.CreateBatch(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, "batch-1", id)
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ingest_batches")).
			WillReturnError(errors.New("db down"))

		_, err := repo.CreateBatch(context.Background(), 1)
		assert.Error(t, err)
	})
}

func TestPostgresRepo_FinishBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := loader.NewPostgresRepo(db)

	t.Run("Completed", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE ingest_batches SET status = $1, updated_at = NOW() WHERE id = $2")).
			WithArgs("completed", "batch-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.FinishBatch(context.Background(), "batch-1", true))
	})

	t.Run("Failed", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE ingest_batches SET status = $1, updated_at = NOW() WHERE id = $2")).
			WithArgs("failed", "batch-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.FinishBatch(context.Background(), "batch-2", false))
	})
}

func TestPostgresRepo_SaveOutcomes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := loader.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ingest_outcomes (batch_id, tenant, stage, error) VALUES ($1, $2, $3, $4)")).
			WithArgs("batch-1", "alice", "persist", "").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ingest_outcomes (batch_id, tenant, stage, error) VALUES ($1, $2, $3, $4)")).
			WithArgs("batch-1", "bob", "split", "no splitter").
			WillReturnResult(sqlmock.NewResult(0, 1))

		outcomes := []ingest.TenantOutcome{
			{Tenant: "alice", Stage: ingest.StagePersist},
			{Tenant: "bob", Stage: ingest.StageSplit, Err: errors.New("no splitter")},
		}
		assert.NoError(t, repo.SaveOutcomes(context.Background(), "batch-1", outcomes))
	})
}

func TestPostgresRepo_ListBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := loader.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		now := time.Now().Format(time.RFC3339)
		rows := sqlmock.NewRows([]string{"id", "status", "source_count", "created_at", "updated_at"}).
			AddRow("batch-1", "completed", 3, now, now).
			AddRow("batch-2", "failed", 1, now, now)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, source_count, created_at, updated_at FROM ingest_batches")).
			WillReturnRows(rows)

		batches, err := repo.ListBatches(context.Background())
		assert.NoError(t, err)
		assert.Len(t, batches, 2)
		assert.Equal(t, "completed", batches[0].Status)
		assert.Equal(t, 1, batches[1].SourceCount)
	})
}
