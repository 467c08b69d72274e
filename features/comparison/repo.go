package comparison

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, cmp *Comparison) error {
	query := `
		INSERT INTO comparisons (id, left_doc_id, right_doc_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, cmp.ID, cmp.LeftDocID, cmp.RightDocID, cmp.Status, cmp.CreatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Comparison, error) {
	query := `
		SELECT id, left_doc_id, right_doc_id, status, result, error, created_at, completed_at
		FROM comparisons
		WHERE id = $1`

	var (
		cmp       Comparison
		rawResult []byte
		errText   sql.NullString
		completed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cmp.ID, &cmp.LeftDocID, &cmp.RightDocID, &cmp.Status,
		&rawResult, &errText, &cmp.CreatedAt, &completed,
	)
	if err != nil {
		return nil, err
	}

	if len(rawResult) > 0 {
		var res Result
		if err := json.Unmarshal(rawResult, &res); err != nil {
			return nil, fmt.Errorf("corrupt stored result for comparison %s: %w", id, err)
		}
		cmp.Result = &res
	}
	if errText.Valid {
		cmp.Error = errText.String
	}
	if completed.Valid {
		t := completed.Time
		cmp.CompletedAt = &t
	}
	return &cmp, nil
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, result *Result) (bool, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE comparisons
		SET status = 'completed', result = $1, completed_at = NOW()
		WHERE id = $2 AND status = 'processing'`
	res, err := r.db.ExecContext(ctx, query, string(raw), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) Fail(ctx context.Context, id string, cause string) (bool, error) {
	query := `
		UPDATE comparisons
		SET status = 'failed', error = $1
		WHERE id = $2 AND status = 'processing'`
	res, err := r.db.ExecContext(ctx, query, cause, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comparisons`).Scan(&count)
	return count, err
}
