// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package content (Postgres) implements the storage layer for documents.

# Schema Table Mapping
  - content.document: Every kind, payload in JSONB `data` (GIN jsonb_path_ops).
*/
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/database/schema"
	"github.com/taibuivan/toeic/internal/platform/dberr"
)

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
}

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
	db   querier
}

// NewRepository creates a new Postgres-backed document repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, db: pool}
}

var documentColumns = strings.Join(schema.ContentDocument.Columns(), ", ")

/*
WithinTx opens a transaction and hands fn a repository bound to it.

Description: Nested calls reuse the outer transaction.
*/
func (repository *PostgresRepository) WithinTx(context context.Context, fn func(Repository) error) error {
	if repository.pool == nil {
		return fn(repository)
	}

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_document_tx")
	}
	defer transaction.Rollback(context)

	if err := fn(&PostgresRepository{db: transaction}); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "commit_document_tx")
	}
	return nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	document := &Document{}
	var payload []byte
	var kind string

	err := row.Scan(
		&document.ID,
		&kind,
		&payload,
		&document.IsActive,
		&document.IsDeleted,
		&document.AddedBy,
		&document.UpdatedBy,
		&document.CreatedAt,
		&document.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	document.Kind = Kind(kind)
	if err := json.Unmarshal(payload, &document.Data); err != nil {
		return nil, fmt.Errorf("postgres_document_decode_failed: %w", err)
	}
	return document, nil
}

func encodePayload(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, apperr.ValidationError("Invalid document payload")
	}
	return payload, nil
}

// # Writes

// Create inserts one or more documents in a single batch.
func (repository *PostgresRepository) Create(context context.Context, documents ...*Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.ContentDocument.Table, documentColumns,
	)

	batch := &pgx.Batch{}
	for _, document := range documents {
		payload, err := encodePayload(document.Data)
		if err != nil {
			return err
		}
		batch.Queue(query,
			document.ID,
			string(document.Kind),
			payload,
			document.IsActive,
			document.IsDeleted,
			document.AddedBy,
			document.UpdatedBy,
			document.CreatedAt,
			document.UpdatedAt,
		)
	}

	results := repository.db.SendBatch(context, batch)
	defer results.Close()

	for range documents {
		if _, err := results.Exec(); err != nil {
			return dberr.Wrap(err, "create_document")
		}
	}
	return nil
}

// Update replaces or merges the payload of a live document.
func (repository *PostgresRepository) Update(context context.Context, kind Kind, id string, data map[string]any, isActive *bool, replace bool, actor *string, now time.Time) (*Document, error) {
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	dataExpression := fmt.Sprintf("%s || $3::jsonb", schema.ContentDocument.Data)
	if replace {
		dataExpression = "$3::jsonb"
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = %s,
		    %s = COALESCE($4, %s),
		    %s = $5,
		    %s = $6
		WHERE %s = $1 AND %s = $2 AND %s = FALSE
		RETURNING %s`,
		schema.ContentDocument.Table,
		schema.ContentDocument.Data, dataExpression,
		schema.ContentDocument.IsActive, schema.ContentDocument.IsActive,
		schema.ContentDocument.UpdatedBy,
		schema.ContentDocument.UpdatedAt,
		schema.ContentDocument.ID, schema.ContentDocument.Kind, schema.ContentDocument.IsDeleted,
		documentColumns,
	)

	document, err := scanDocument(repository.db.QueryRow(context, query, id, string(kind), payload, isActive, actor, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.RecordNotFound("Record not found with specified criteria")
		}
		return nil, dberr.Wrap(err, "update_document")
	}
	return document, nil
}

// UpdateMany merges patch into every live match of filter.
func (repository *PostgresRepository) UpdateMany(context context.Context, kind Kind, filter map[string]any, patch map[string]any, actor *string, now time.Time) (int, error) {
	filterPayload, err := encodePayload(filter)
	if err != nil {
		return 0, err
	}
	patchPayload, err := encodePayload(patch)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = %s || $3::jsonb, %s = $4, %s = $5
		WHERE %s = $1 AND %s = FALSE AND %s @> $2::jsonb`,
		schema.ContentDocument.Table,
		schema.ContentDocument.Data, schema.ContentDocument.Data,
		schema.ContentDocument.UpdatedBy, schema.ContentDocument.UpdatedAt,
		schema.ContentDocument.Kind, schema.ContentDocument.IsDeleted, schema.ContentDocument.Data,
	)

	tag, err := repository.db.Exec(context, query, string(kind), filterPayload, patchPayload, actor, now)
	if err != nil {
		return 0, dberr.Wrap(err, "update_many_documents")
	}
	return int(tag.RowsAffected()), nil
}

// SoftDelete flags live matches as deleted.
func (repository *PostgresRepository) SoftDelete(context context.Context, kind Kind, selector Selector, actor *string, now time.Time) ([]string, error) {
	clause := selectorClause(selector, 2)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = FALSE, %s = $4, %s = $5
		WHERE %s = $1 AND %s = FALSE AND %s
		RETURNING %s`,
		schema.ContentDocument.Table,
		schema.ContentDocument.IsDeleted, schema.ContentDocument.IsActive,
		schema.ContentDocument.UpdatedBy, schema.ContentDocument.UpdatedAt,
		schema.ContentDocument.Kind, schema.ContentDocument.IsDeleted, clause,
		schema.ContentDocument.ID,
	)

	return repository.collectIDs(context, "soft_delete_documents", query, string(kind), selector.Field, selector.Values, actor, now)
}

// Delete physically removes matches.
func (repository *PostgresRepository) Delete(context context.Context, kind Kind, selector Selector) ([]string, error) {
	clause := selectorClause(selector, 2)
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s = $1 AND %s
		RETURNING %s`,
		schema.ContentDocument.Table,
		schema.ContentDocument.Kind, clause,
		schema.ContentDocument.ID,
	)

	return repository.collectIDs(context, "delete_documents", query, string(kind), selector.Field, selector.Values)
}

// # Reads

// FindByID retrieves one live document.
func (repository *PostgresRepository) FindByID(context context.Context, kind Kind, id string) (*Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2 AND %s = FALSE`,
		documentColumns, schema.ContentDocument.Table,
		schema.ContentDocument.ID, schema.ContentDocument.Kind, schema.ContentDocument.IsDeleted,
	)

	document, err := scanDocument(repository.db.QueryRow(context, query, id, string(kind)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.RecordNotFound("Record not found with specified criteria")
		}
		return nil, dberr.Wrap(err, "find_document")
	}
	return document, nil
}

// FindIDs lists the ids of live matches.
func (repository *PostgresRepository) FindIDs(context context.Context, kind Kind, selector Selector) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = FALSE AND %s`,
		schema.ContentDocument.ID, schema.ContentDocument.Table,
		schema.ContentDocument.Kind, schema.ContentDocument.IsDeleted, selectorClause(selector, 2),
	)

	return repository.collectIDs(context, "find_document_ids", query, string(kind), selector.Field, selector.Values)
}

/*
List returns one page of documents matching the containment filter.

Description: Sort keys map to columns for envelope fields and to JSON
paths otherwise. Newest first when no sort is given.
*/
func (repository *PostgresRepository) List(context context.Context, kind Kind, listQuery ListQuery) ([]Document, error) {
	filterPayload, err := encodePayload(listQuery.Filter)
	if err != nil {
		return nil, err
	}

	args := []any{string(kind), filterPayload}
	var builder strings.Builder
	fmt.Fprintf(&builder, `
		SELECT %s FROM %s
		WHERE %s = $1 AND %s @> $2::jsonb`,
		documentColumns, schema.ContentDocument.Table,
		schema.ContentDocument.Kind, schema.ContentDocument.Data,
	)
	if !listQuery.IncludeDeleted {
		fmt.Fprintf(&builder, " AND %s = FALSE", schema.ContentDocument.IsDeleted)
	}

	order := make([]string, 0, len(listQuery.Sort)+1)
	for _, sort := range listQuery.Sort {
		expression, ok := columnFor(sort.Field)
		if !ok {
			args = append(args, sort.Field)
			expression = fmt.Sprintf("%s -> $%d", schema.ContentDocument.Data, len(args))
		}
		direction := "ASC"
		if sort.Descending {
			direction = "DESC"
		}
		order = append(order, expression+" "+direction)
	}
	order = append(order, schema.ContentDocument.CreatedAt+" DESC", schema.ContentDocument.ID+" DESC")
	fmt.Fprintf(&builder, " ORDER BY %s", strings.Join(order, ", "))

	if listQuery.Paginate {
		args = append(args, listQuery.Page.Limit, listQuery.Page.Offset())
		fmt.Fprintf(&builder, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := repository.db.Query(context, builder.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "list_documents")
	}
	defer rows.Close()

	documents := make([]Document, 0)
	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_document")
		}
		documents = append(documents, *document)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_documents")
	}
	return documents, nil
}

// Count returns the number of documents matching the containment filter.
func (repository *PostgresRepository) Count(context context.Context, kind Kind, filter map[string]any, includeDeleted bool) (int, error) {
	filterPayload, err := encodePayload(filter)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE %s = $1 AND %s @> $2::jsonb AND ($3 OR %s = FALSE)`,
		schema.ContentDocument.Table,
		schema.ContentDocument.Kind, schema.ContentDocument.Data, schema.ContentDocument.IsDeleted,
	)

	var count int
	if err := repository.db.QueryRow(context, query, string(kind), filterPayload, includeDeleted).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "count_documents")
	}
	return count, nil
}

// # Helpers

// columnFor maps envelope fields onto their columns.
func columnFor(field string) (string, bool) {
	switch field {
	case FieldID:
		return schema.ContentDocument.ID, true
	case FieldAddedBy:
		return schema.ContentDocument.AddedBy, true
	case FieldUpdatedBy:
		return schema.ContentDocument.UpdatedBy, true
	case FieldCreatedAt:
		return schema.ContentDocument.CreatedAt, true
	case FieldUpdatedAt:
		return schema.ContentDocument.UpdatedAt, true
	case FieldIsActive:
		return schema.ContentDocument.IsActive, true
	}
	return "", false
}

// selectorClause renders selector using parameters $n (field) and $n+1 (values).
// Column selectors ignore the field parameter but keep the numbering stable.
func selectorClause(selector Selector, n int) string {
	if column, ok := columnFor(selector.Field); ok {
		return fmt.Sprintf("($%d::text IS NOT NULL AND %s::text = ANY($%d::text[]))", n, column, n+1)
	}
	return fmt.Sprintf("%s ->> $%d::text = ANY($%d::text[])", schema.ContentDocument.Data, n, n+1)
}

func (repository *PostgresRepository) collectIDs(context context.Context, action, query string, args ...any) ([]string, error) {
	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}
	return ids, nil
}
