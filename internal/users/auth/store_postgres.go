// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

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
)

// UserColumns is the SELECT list matching [ScanUser].
var UserColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// ScanUser hydrates a [User] from a row selected with [UserColumns].
func ScanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.UserType,
		&user.Profile,
		&user.IsActive,
		&user.IsDeleted,
		&user.GoogleID,
		&user.FacebookID,
		&user.FirebaseUID,
		&user.LoginRetryLimit,
		&user.LoginReactiveTime,
		&user.ResetCode,
		&user.ResetExpiresAt,
		&user.AddedBy,
		&user.UpdatedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// externalColumns maps each provider to the column holding its subject.
var externalColumns = map[Provider]string{
	ProviderGoogle:   schema.UserAccount.GoogleID,
	ProviderFacebook: schema.UserAccount.FacebookID,
	ProviderDevice:   schema.UserAccount.FirebaseUID,
}

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// findOne runs a single-row lookup restricted to live identities.
func (repository *PostgresUserRepository) findOne(context context.Context, action, where string, args ...any) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s AND %s = FALSE LIMIT 1`,
		UserColumns, schema.UserAccount.Table, where, schema.UserAccount.IsDeleted)

	user, err := ScanUser(repository.pool.QueryRow(context, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, action)
	}
	return user, nil
}

// FindByID retrieves an identity by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, "find_user_by_id", "id = $1", id)
}

// FindByLogin retrieves an identity whose username or email matches handle, case-insensitively.
func (repository *PostgresUserRepository) FindByLogin(context context.Context, handle string) (*User, error) {
	return repository.findOne(context, "find_user_by_login",
		"(LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1))", handle)
}

// FindByEmail retrieves an identity by email.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, "find_user_by_email", "LOWER(email) = LOWER($1)", email)
}

// FindByUsername retrieves an identity by username.
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, "find_user_by_username", "LOWER(username) = LOWER($1)", username)
}

// FindByExternalID retrieves the identity linked to a federated subject.
func (repository *PostgresUserRepository) FindByExternalID(context context.Context, provider Provider, subject string) (*User, error) {
	column, ok := externalColumns[provider]
	if !ok {
		return nil, apperr.BadRequest(fmt.Sprintf("Unsupported provider %q", provider))
	}
	return repository.findOne(context, "find_user_by_external_id", column+" = $1", subject)
}

/*
Create persists a new identity into the users.account table.

Description: Timestamps are initialized when zero. Unique violations on
username or email surface as [apperr.Duplicate].

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Duplicate or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	if user.Profile == nil {
		user.Profile = map[string]any{}
	}

	columns := schema.UserAccount.Columns()
	placeholders := make([]string, len(columns))
	for index := range columns {
		placeholders[index] = fmt.Sprintf("$%d", index+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		schema.UserAccount.Table, UserColumns, strings.Join(placeholders, ", "))

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.UserType,
		user.Profile,
		user.IsActive,
		user.IsDeleted,
		user.GoogleID,
		user.FacebookID,
		user.FirebaseUID,
		user.LoginRetryLimit,
		user.LoginReactiveTime,
		user.ResetCode,
		user.ResetExpiresAt,
		user.AddedBy,
		user.UpdatedBy,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "create_user")
	}
	return nil
}

/*
RecordFailedLogin consumes one login attempt in a single statement.

Description: The counter never drops below zero. The attempt that exhausts
it stamps the lockout window end; later failures inside the window leave the
stamp untouched.

Returns:
  - int: Remaining attempts
  - *time.Time: Lockout end when remaining is zero
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) RecordFailedLogin(context context.Context, id string, now time.Time, window time.Duration) (int, *time.Time, error) {
	const query = `
		UPDATE users.account
		SET loginretrylimit = GREATEST(loginretrylimit - 1, 0),
		    loginreactivetime = CASE
		        WHEN loginretrylimit - 1 <= 0 AND (loginreactivetime IS NULL OR loginreactivetime <= $2)
		        THEN $3::timestamptz
		        ELSE loginreactivetime
		    END,
		    updatedat = $2
		WHERE id = $1 AND isdeleted = FALSE
		RETURNING loginretrylimit, loginreactivetime`

	var remaining int
	var reactiveAt *time.Time
	err := repository.pool.QueryRow(context, query, id, now, now.Add(window)).Scan(&remaining, &reactiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, apperr.NotFound("User")
		}
		return 0, nil, dberr.Wrap(err, "record_failed_login")
	}

	if remaining > 0 {
		reactiveAt = nil
	}
	return remaining, reactiveAt, nil
}

// ResetLoginAttempts restores the retry counter and clears the lockout window.
func (repository *PostgresUserRepository) ResetLoginAttempts(context context.Context, id string, limit int) error {
	const query = `
		UPDATE users.account
		SET loginretrylimit = $2, loginreactivetime = NULL
		WHERE id = $1 AND (loginretrylimit <> $2 OR loginreactivetime IS NOT NULL)`

	if _, err := repository.pool.Exec(context, query, id, limit); err != nil {
		return dberr.Wrap(err, "reset_login_attempts")
	}
	return nil
}

// SetResetCode stores a fresh reset code, overwriting any previous one.
func (repository *PostgresUserRepository) SetResetCode(context context.Context, id, code string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET resetcode = $2, resetexpiresat = $3, updatedat = NOW()
		WHERE id = $1 AND isdeleted = FALSE`

	tag, err := repository.pool.Exec(context, query, id, code, expiresAt)
	if err != nil {
		return dberr.Wrap(err, "set_reset_code")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// FindByResetCode retrieves the identity holding a live reset code.
func (repository *PostgresUserRepository) FindByResetCode(context context.Context, code string, now time.Time) (*User, error) {
	return repository.findOne(context, "find_user_by_reset_code",
		"resetcode = $1 AND resetexpiresat > $2", code, now)
}

/*
ConsumeResetCode applies a password reset guarded by the code itself.

Description: The WHERE clause re-checks the code and its expiry so a
concurrent or replayed reset finds no row.

Returns:
  - string: Updated identity ID
  - error: apperr.NotFound when the code is unknown, used or expired
*/
func (repository *PostgresUserRepository) ConsumeResetCode(context context.Context, code, passwordHash string, now time.Time, limit int) (string, error) {
	const query = `
		UPDATE users.account
		SET passwordhash = $2,
		    resetcode = NULL,
		    resetexpiresat = NULL,
		    loginretrylimit = $4,
		    loginreactivetime = NULL,
		    updatedat = $3
		WHERE resetcode = $1 AND resetexpiresat > $3 AND isdeleted = FALSE
		RETURNING id`

	var id string
	err := repository.pool.QueryRow(context, query, code, passwordHash, now, limit).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("Reset code")
		}
		return "", dberr.Wrap(err, "consume_reset_code")
	}
	return id, nil
}

// UpdatePassword replaces only the password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = NOW()
		WHERE id = $1 AND isdeleted = FALSE`

	tag, err := repository.pool.Exec(context, query, id, passwordHash)
	if err != nil {
		return dberr.Wrap(err, "update_password")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// LinkExternalID attaches a federated subject to an existing identity.
func (repository *PostgresUserRepository) LinkExternalID(context context.Context, id string, provider Provider, subject string) error {
	column, ok := externalColumns[provider]
	if !ok {
		return apperr.BadRequest(fmt.Sprintf("Unsupported provider %q", provider))
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $2, updatedat = NOW() WHERE id = $1`, schema.UserAccount.Table, column)
	if _, err := repository.pool.Exec(context, query, id, subject); err != nil {
		return dberr.Wrap(err, "link_external_id")
	}
	return nil
}

// SetActive toggles the isActive flag.
func (repository *PostgresUserRepository) SetActive(context context.Context, id string, active bool) error {
	const query = "UPDATE users.account SET isactive = $2, updatedat = NOW() WHERE id = $1"
	if _, err := repository.pool.Exec(context, query, id, active); err != nil {
		return dberr.Wrap(err, "set_user_active")
	}
	return nil
}

// # Session Repository

// sessionColumns are the users.session columns hydrated into [Session] by name.
var sessionColumns = strings.Join([]string{
	schema.UserSession.ID,
	schema.UserSession.UserID,
	schema.UserSession.Platform,
	schema.UserSession.TokenHash,
	schema.UserSession.UserAgent,
	schema.UserSession.IPAddress,
	schema.UserSession.ExpiresAt,
	schema.UserSession.IsRevoked,
	schema.UserSession.CreatedAt,
}, ", ")

// PostgresSessionRepository stores refresh-token sessions in users.session.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create inserts session. Only the refresh-token digest is stored.

Returns:
  - error: Duplicate on a digest collision, Internal otherwise
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.UserSession.Table, sessionColumns)

	_, err := repository.pool.Exec(context, query,
		session.ID, session.UserID, session.Platform, session.TokenHash,
		session.UserAgent, session.IPAddress, session.ExpiresAt, session.IsRevoked, session.CreatedAt,
	)
	return dberr.Wrap(err, "create_session")
}

/*
FindByTokenHash returns the live session for a refresh-token digest.

Returns:
  - *Session: a session that is neither revoked nor expired
  - error: apperr.NotFound("Session") otherwise
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = FALSE AND %s > NOW()`,
		sessionColumns, schema.UserSession.Table,
		schema.UserSession.TokenHash, schema.UserSession.IsRevoked, schema.UserSession.ExpiresAt)

	rows, _ := repository.pool.Query(context, query, tokenHash)
	session, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Session])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Session")
	}
	if err != nil {
		return nil, dberr.Wrap(err, "find_session")
	}
	return session, nil
}

// Revoke closes one session. Revoking a closed session is a no-op.
func (repository *PostgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	return repository.revokeWhere(context, schema.UserSession.ID, sessionID, "revoke_session")
}

// RevokeAll closes every open session of userID.
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) error {
	return repository.revokeWhere(context, schema.UserSession.UserID, userID, "revoke_user_sessions")
}

func (repository *PostgresSessionRepository) revokeWhere(context context.Context, column, value, action string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE, %s = NOW() WHERE %s = $1 AND %s = FALSE`,
		schema.UserSession.Table, schema.UserSession.IsRevoked, schema.UserSession.RevokedAt,
		column, schema.UserSession.IsRevoked)

	_, err := repository.pool.Exec(context, query, value)
	return dberr.Wrap(err, action)
}
