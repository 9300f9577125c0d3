// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for identities.
//
// Every lookup ignores identities flagged isDeleted. Lockout and reset
// transitions are single statements so concurrent requests cannot race
// past the counter or reuse a code.
type UserRepository interface {

	/*
		FindByID returns the identity with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	// FindByLogin matches handle against username or email.
	FindByLogin(context context.Context, handle string) (*User, error)

	FindByEmail(context context.Context, email string) (*User, error)

	FindByUsername(context context.Context, username string) (*User, error)

	// FindByExternalID resolves a federated subject to its linked identity.
	FindByExternalID(context context.Context, provider Provider, subject string) (*User, error)

	/*
		Create persists a brand-new identity.

		Returns:
		  - error: apperr.Duplicate on username/email conflicts
	*/
	Create(context context.Context, user *User) error

	/*
		RecordFailedLogin decrements the retry counter (never below zero) and
		starts the lockout window when it reaches zero.

		Returns:
		  - int: Attempts left after this failure
		  - *time.Time: End of the lockout window, nil while attempts remain
		  - error: Database failures
	*/
	RecordFailedLogin(context context.Context, id string, now time.Time, window time.Duration) (int, *time.Time, error)

	// ResetLoginAttempts restores the counter to limit and clears the window.
	ResetLoginAttempts(context context.Context, id string, limit int) error

	// SetResetCode overwrites any previous reset code.
	SetResetCode(context context.Context, id, code string, expiresAt time.Time) error

	// FindByResetCode returns the identity holding code while it is still live at now.
	FindByResetCode(context context.Context, code string, now time.Time) (*User, error)

	/*
		ConsumeResetCode replaces the password of the identity holding a live
		code, clears the code and restores the retry counter to limit.

		Returns:
		  - string: ID of the updated identity
		  - error: apperr.NotFound when no live code matched
	*/
	ConsumeResetCode(context context.Context, code, passwordHash string, now time.Time, limit int) (string, error)

	UpdatePassword(context context.Context, id, passwordHash string) error

	// LinkExternalID stores subject as the identity's provider id.
	LinkExternalID(context context.Context, id string, provider Provider, subject string) error

	SetActive(context context.Context, id string, active bool) error
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
type SessionRepository interface {

	/*
		Create persists a new tracking session for an authenticated login.
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the active session matching the given token hash.

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound when missing, revoked or expired
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	Revoke(context context.Context, sessionID string) error

	// RevokeAll revokes every active session belonging to userID.
	RevokeAll(context context.Context, userID string) error
}

// # Volatile Data Access

// IssuedTokenRepository records issued access tokens so they can be revoked
// before their natural expiry.
type IssuedTokenRepository interface {

	// Record stores the token for ttl.
	Record(context context.Context, token string, issued IssuedToken, ttl time.Duration) error

	// Find returns apperr.NotFound once the token is revoked or expired.
	Find(context context.Context, token string) (*IssuedToken, error)

	// Revoke is idempotent; it reports whether a record was removed.
	Revoke(context context.Context, token string) (bool, error)

	// RevokeAll removes every token of userID except the one given (may be empty).
	RevokeAll(context context.Context, userID, except string) (int, error)
}
