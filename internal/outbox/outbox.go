package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Event is one pending publication. Rows are written in the same transaction
// as the state change that requires them, so a crash between commit and
// publish loses nothing: the dispatcher picks the row up on restart.
type Event struct {
	ID      int64
	Topic   string
	Payload json.RawMessage
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// InsertTx stages an event inside the caller's transaction. The payload is
// bound as text so it lands in the jsonb column without a bytea cast.
func InsertTx(ctx context.Context, tx *sql.Tx, topic string, payload []byte) error {
	query := `INSERT INTO outbox (topic, payload) VALUES ($1, $2)`
	_, err := tx.ExecContext(ctx, query, topic, string(payload))
	return err
}

func (r *PostgresRepo) FetchUnpublished(ctx context.Context, limit int) ([]Event, error) {
	query := `SELECT id, topic, payload FROM outbox WHERE published_at IS NULL ORDER BY id LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.Topic, &payload); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PostgresRepo) MarkPublished(ctx context.Context, id int64) error {
	query := `UPDATE outbox SET published_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
