package deadletter

import (
	"context"
	"database/sql"
	"time"
)

// DeadLetter is a queue message that could not be processed and was set
// aside so the queue keeps draining. Body is the raw message as received,
// malformed or not, so it cannot be assumed to be valid JSON.
type DeadLetter struct {
	ID        string    `json:"id"`
	Queue     string    `json:"queue"`
	Body      string    `json:"body"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, queue string, body []byte, cause string) error
	List(ctx context.Context) ([]DeadLetter, error)
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, queue string, body []byte, cause string) error {
	query := `INSERT INTO dead_letters (queue, body, error) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, queue, string(body), cause)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]DeadLetter, error) {
	query := `SELECT id, queue, body, error, created_at FROM dead_letters ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []DeadLetter
	for rows.Next() {
		var d DeadLetter
		if err := rows.Scan(&d.ID, &d.Queue, &d.Body, &d.Error, &d.CreatedAt); err != nil {
			return nil, err
		}
		letters = append(letters, d)
	}
	return letters, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&count)
	return count, err
}
