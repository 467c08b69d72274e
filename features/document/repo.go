package document

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"doccompare/internal/outbox"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, doc *Document, eventTopic string, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO documents (id, sha256, filename, size, page_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, doc.ID, doc.SHA256, doc.Filename, doc.Size, doc.PageCount, doc.Status, doc.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConflict
		}
		return err
	}

	if err := outbox.InsertTx(ctx, tx, eventTopic, eventPayload); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepo) GetByHash(ctx context.Context, sha string) (*Document, error) {
	query := `
		SELECT id, sha256, filename, size, page_count, status, created_at
		FROM documents
		WHERE sha256 = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, sha))
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	query := `
		SELECT id, sha256, filename, size, page_count, status, created_at
		FROM documents
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `
		SELECT id, sha256, filename, size, page_count, status, created_at
		FROM documents
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.SHA256, &d.Filename, &d.Size, &d.PageCount, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// UpdateStatus moves a processing document to a terminal status. Terminal
// rows are never rewritten; a late or repeated transition is a no-op.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE documents SET status = $1 WHERE id = $2 AND status = 'processing'`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *PostgresRepo) GetPageCount(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT page_count FROM documents WHERE id = $1`, id).Scan(&n)
	return n, err
}

func (r *PostgresRepo) AlreadyChunked(ctx context.Context, docID string, pageNo int) (bool, error) {
	var chunked bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM document_pages
			WHERE doc_id = $1 AND page_no = $2 AND chunked_at IS NOT NULL
		)`
	err := r.db.QueryRowContext(ctx, query, docID, pageNo).Scan(&chunked)
	return chunked, err
}

// MarkPageChunked records that the page's chunks are embedded and stored.
// Returns false when the page was already marked, so redeliveries of the
// same page event can be recognized after the fact.
func (r *PostgresRepo) MarkPageChunked(ctx context.Context, docID string, pageNo int) (bool, error) {
	query := `
		INSERT INTO document_pages (doc_id, page_no, chunked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (doc_id, page_no)
		DO UPDATE SET chunked_at = NOW()
		WHERE document_pages.chunked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, docID, pageNo)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPageReady records the splitter's page.ready signal. Returns false on a
// redelivered signal for a page already counted.
func (r *PostgresRepo) MarkPageReady(ctx context.Context, docID string, pageNo int) (bool, error) {
	query := `
		INSERT INTO document_pages (doc_id, page_no, ready_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (doc_id, page_no)
		DO UPDATE SET ready_at = NOW()
		WHERE document_pages.ready_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, docID, pageNo)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) CountReadyPages(ctx context.Context, docID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM document_pages WHERE doc_id = $1 AND ready_at IS NOT NULL`
	err := r.db.QueryRowContext(ctx, query, docID).Scan(&n)
	return n, err
}

func (r *PostgresRepo) scanOne(row *sql.Row) (*Document, error) {
	var d Document
	if err := row.Scan(&d.ID, &d.SHA256, &d.Filename, &d.Size, &d.PageCount, &d.Status, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
