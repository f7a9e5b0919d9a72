package loader

import (
	"context"
	"database/sql"

	"corpora/backend/internal/ingest"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateBatch(ctx context.Context, sourceCount int) (string, error) {
	var id string
	query := `INSERT INTO ingest_batches (source_count) VALUES ($1) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, sourceCount).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostgresRepo) FinishBatch(ctx context.Context, id string, ok bool) error {
	status := "completed"
	if !ok {
		status = "failed"
	}
	query := `UPDATE ingest_batches SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *PostgresRepo) SaveOutcomes(ctx context.Context, batchID string, outcomes []ingest.TenantOutcome) error {
	query := `INSERT INTO ingest_outcomes (batch_id, tenant, stage, error) VALUES ($1, $2, $3, $4)`
	for _, o := range outcomes {
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		if _, err := r.db.ExecContext(ctx, query, batchID, o.Tenant, string(o.Stage), msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepo) ListBatches(ctx context.Context) ([]Batch, error) {
	query := `SELECT id, status, source_count, created_at, updated_at FROM ingest_batches ORDER BY created_at DESC LIMIT 100`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Status, &b.SourceCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
