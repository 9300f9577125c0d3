// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the storage layer for user management.

# Schema Table Mapping
  - users.account: Master identity and profile data, shared with auth.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/database/schema"
	"github.com/taibuivan/toeic/internal/platform/dberr"
	"github.com/taibuivan/toeic/internal/users/auth"
)

// # Repository Implementations

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Postgres implementation for user management.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
FindByID retrieves a live identity from the users.account table.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *auth.User: Hydrated identity entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*auth.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s::text = $1 AND %s = FALSE`,
		auth.UserColumns, schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.IsDeleted,
	)

	user, err := auth.ScanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "find_account")
	}
	return user, nil
}

// List returns one page of live identities, newest first.
func (repository *PostgresRepository) List(context context.Context, listQuery ListQuery) ([]auth.User, error) {
	where, args := filterClause(listQuery.Filter)

	var builder strings.Builder
	fmt.Fprintf(&builder, `
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s DESC, %s DESC`,
		auth.UserColumns, schema.UserAccount.Table, where,
		schema.UserAccount.CreatedAt, schema.UserAccount.ID,
	)
	if listQuery.Paginate {
		args = append(args, listQuery.Page.Limit, listQuery.Page.Offset())
		fmt.Fprintf(&builder, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := repository.pool.Query(context, builder.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "list_accounts")
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.User, error) {
		user, err := auth.ScanUser(row)
		if err != nil {
			return auth.User{}, err
		}
		return *user, nil
	})
	if err != nil {
		return nil, dberr.Wrap(err, "list_accounts")
	}
	return users, nil
}

// Count returns the number of live identities matching filter.
func (repository *PostgresRepository) Count(context context.Context, filter Filter) (int, error) {
	where, args := filterClause(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.UserAccount.Table, where)

	var count int
	if err := repository.pool.QueryRow(context, query, args...).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "count_accounts")
	}
	return count, nil
}

/*
Update applies changes to a live identity in one statement.

Description: The profile is either replaced or merged with the JSONB `||`
operator. Unique index violations surface as apperr.Duplicate.

Returns:
  - *auth.User: The stored identity after the change
  - error: apperr.NotFound when no live identity matched
*/
func (repository *PostgresRepository) Update(context context.Context, id string, changes Changes, actor *string, now time.Time) (*auth.User, error) {
	args := []any{id}
	assignments := make([]string, 0, 8)
	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Username != nil {
		set(schema.UserAccount.Username, *changes.Username)
	}
	if changes.Email != nil {
		set(schema.UserAccount.Email, strings.ToLower(strings.TrimSpace(*changes.Email)))
	}
	if changes.Name != nil {
		set(schema.UserAccount.Name, *changes.Name)
	}
	if changes.UserType != nil {
		set(schema.UserAccount.UserType, *changes.UserType)
	}
	if changes.IsActive != nil {
		set(schema.UserAccount.IsActive, *changes.IsActive)
	}
	if changes.Profile != nil || changes.ReplaceProfile {
		profile := changes.Profile
		if profile == nil {
			profile = map[string]any{}
		}
		args = append(args, profile)
		if changes.ReplaceProfile {
			assignments = append(assignments, fmt.Sprintf("%s = $%d::jsonb", schema.UserAccount.Profile, len(args)))
		} else {
			assignments = append(assignments, fmt.Sprintf("%s = %s || $%d::jsonb",
				schema.UserAccount.Profile, schema.UserAccount.Profile, len(args)))
		}
	}
	set(schema.UserAccount.UpdatedBy, actor)
	set(schema.UserAccount.UpdatedAt, now)

	query := fmt.Sprintf(`
		UPDATE %s SET %s
		WHERE %s::text = $1 AND %s = FALSE
		RETURNING %s`,
		schema.UserAccount.Table, strings.Join(assignments, ", "),
		schema.UserAccount.ID, schema.UserAccount.IsDeleted,
		auth.UserColumns,
	)

	user, err := auth.ScanUser(repository.pool.QueryRow(context, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, dberr.Wrap(err, "update_account")
	}
	return user, nil
}

// FindIDs returns the subset of ids that are live.
func (repository *PostgresRepository) FindIDs(context context.Context, ids []string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT %s::text FROM %s
		WHERE %s::text = ANY($1::text[]) AND %s = FALSE`,
		schema.UserAccount.ID, schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.IsDeleted,
	)
	return repository.collectIDs(context, "find_account_ids", query, ids)
}

// FindAddedBy returns the live identities created by one of userIDs.
func (repository *PostgresRepository) FindAddedBy(context context.Context, userIDs []string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT %s::text FROM %s
		WHERE %s::text = ANY($1::text[]) AND %s = FALSE`,
		schema.UserAccount.ID, schema.UserAccount.Table,
		schema.UserAccount.AddedBy, schema.UserAccount.IsDeleted,
	)
	return repository.collectIDs(context, "find_accounts_added_by", query, userIDs)
}

// SoftDelete flags live identities as deleted and inactive.
func (repository *PostgresRepository) SoftDelete(context context.Context, ids []string, actor *string, now time.Time) ([]string, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = FALSE, %s = $2, %s = $3
		WHERE %s::text = ANY($1::text[]) AND %s = FALSE
		RETURNING %s::text`,
		schema.UserAccount.Table,
		schema.UserAccount.IsDeleted, schema.UserAccount.IsActive,
		schema.UserAccount.UpdatedBy, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.IsDeleted,
		schema.UserAccount.ID,
	)
	return repository.collectIDs(context, "soft_delete_accounts", query, ids, actor, now)
}

// Delete physically removes identities; their refresh sessions follow by foreign key.
func (repository *PostgresRepository) Delete(context context.Context, ids []string) ([]string, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s::text = ANY($1::text[])
		RETURNING %s::text`,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.UserAccount.ID,
	)
	return repository.collectIDs(context, "delete_accounts", query, ids)
}

// # Helpers

func (repository *PostgresRepository) collectIDs(context context.Context, action, query string, args ...any) ([]string, error) {
	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}
	return ids, nil
}

// filterClause renders the live-identity predicate plus the filter.
func filterClause(filter Filter) (string, []any) {
	clauses := []string{schema.UserAccount.IsDeleted + " = FALSE"}
	var args []any

	if filter.Username != nil {
		args = append(args, *filter.Username)
		clauses = append(clauses, fmt.Sprintf("LOWER(%s) = LOWER($%d)", schema.UserAccount.Username, len(args)))
	}
	if filter.Email != nil {
		args = append(args, *filter.Email)
		clauses = append(clauses, fmt.Sprintf("LOWER(%s) = LOWER($%d)", schema.UserAccount.Email, len(args)))
	}
	if filter.UserType != nil {
		args = append(args, *filter.UserType)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", schema.UserAccount.UserType, len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", schema.UserAccount.IsActive, len(args)))
	}

	return strings.Join(clauses, " AND "), args
}
