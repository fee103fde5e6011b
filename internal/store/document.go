package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/docflow/apiserver/internal/db"
	"github.com/docflow/apiserver/types"
)

const documentColumns = `id, code, subject, sender, receiver, message, status, created_at, updated_at`

// DocumentRepository handles persistence for documents.
//
// Writes that must only touch drafts carry a status guard in their WHERE
// clause, so a concurrent send cannot be overwritten by a stale update or
// delete. The unique index on code is the authority for code uniqueness.
type DocumentRepository struct {
	db *db.DB
}

func NewDocumentRepository(conn *db.DB) *DocumentRepository {
	return &DocumentRepository{db: conn}
}

func (r *DocumentRepository) List(ctx context.Context, filter types.DocumentFilter) ([]types.Document, int, error) {
	offset, limit := filter.Offset, filter.Limit
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where := ""
	args := []any{}
	if filter.Status != "" {
		where = ` WHERE status = $1`
		args = append(args, filter.Status)
	}

	countQuery := `SELECT COUNT(1) FROM documents` + where
	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var listQuery string
	if filter.Status != "" {
		listQuery = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	} else {
		listQuery = `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(listQuery), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	documents := make([]types.Document, 0, limit)
	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		documents = append(documents, document)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return documents, total, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id int) (types.Document, error) {
	const query = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1`
	document, err := scanDocument(r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Document{}, ErrNotFound
		}
		return types.Document{}, err
	}
	return document, nil
}

// CodeTaken reports whether another document already holds code.
// excludeID skips the document being edited; pass 0 to check all rows.
func (r *DocumentRepository) CodeTaken(ctx context.Context, code int64, excludeID int) (bool, error) {
	const query = `SELECT COUNT(1) FROM documents WHERE code = $1 AND id <> $2`
	var count int
	if err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(query), code, excludeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *DocumentRepository) Create(ctx context.Context, document types.Document) (types.Document, error) {
	now := time.Now().UTC()
	document.CreatedAt = now
	document.UpdatedAt = now
	document.Status = types.StatusDraft

	const query = `
		INSERT INTO documents (code, subject, sender, receiver, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		r.db.Dialect.Rebind(query),
		document.Code,
		document.Subject,
		document.Sender,
		document.Receiver,
		document.Message,
		document.Status,
		document.CreatedAt,
		document.UpdatedAt,
	).Scan(&document.ID); err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return types.Document{}, ErrDuplicateCode
		}
		return types.Document{}, err
	}

	return document, nil
}

// Update writes the mutable fields of a draft. Receiver and status are never touched.
func (r *DocumentRepository) Update(ctx context.Context, document types.Document) (types.Document, error) {
	document.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE documents
		SET code = $1,
			subject = $2,
			sender = $3,
			message = $4,
			updated_at = $5
		WHERE id = $6 AND status = $7`
	result, err := r.db.ExecContext(
		ctx,
		r.db.Dialect.Rebind(query),
		document.Code,
		document.Subject,
		document.Sender,
		document.Message,
		document.UpdatedAt,
		document.ID,
		types.StatusDraft,
	)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return types.Document{}, ErrDuplicateCode
		}
		return types.Document{}, err
	}
	if err := r.guardResult(ctx, result, document.ID); err != nil {
		return types.Document{}, err
	}

	return r.Get(ctx, document.ID)
}

// MarkSent performs the one-way draft -> sent transition.
func (r *DocumentRepository) MarkSent(ctx context.Context, id int) (types.Document, error) {
	const query = `
		UPDATE documents
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(
		ctx,
		r.db.Dialect.Rebind(query),
		types.StatusSent,
		time.Now().UTC(),
		id,
		types.StatusDraft,
	)
	if err != nil {
		return types.Document{}, err
	}
	if err := r.guardResult(ctx, result, id); err != nil {
		return types.Document{}, err
	}

	return r.Get(ctx, id)
}

// Delete physically removes a draft.
func (r *DocumentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM documents WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(query), id, types.StatusDraft)
	if err != nil {
		return err
	}
	return r.guardResult(ctx, result, id)
}

// guardResult turns a zero-row guarded write into ErrNotFound or ErrNotDraft.
func (r *DocumentRepository) guardResult(ctx context.Context, result sql.Result, id int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotDraft
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (types.Document, error) {
	var document types.Document
	var message sql.NullString
	err := row.Scan(
		&document.ID,
		&document.Code,
		&document.Subject,
		&document.Sender,
		&document.Receiver,
		&message,
		&document.Status,
		&document.CreatedAt,
		&document.UpdatedAt,
	)
	if err != nil {
		return types.Document{}, err
	}
	document.Message = message.String
	return document, nil
}
