// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session, IssuedToken) and the
logic for registration, login, lockout accounting, federated sign-in and
password recovery on the admin, client and device platforms.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/taibuivan/toeic/internal/platform/sec"
)

// # Domain Entities

// User represents a registered identity on any platform.
type User struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // Explicitly omitted from JSON for security.
	Name         string         `json:"name,omitempty"`
	UserType     sec.UserType   `json:"userType"`
	Profile      map[string]any `json:"profile,omitempty"`
	IsActive     bool           `json:"isActive"`
	IsDeleted    bool           `json:"isDeleted"`

	// Federated subjects, nil until linked.
	GoogleID    *string `json:"googleId,omitempty"`
	FacebookID  *string `json:"facebookId,omitempty"`
	FirebaseUID *string `json:"firebaseUid,omitempty"`

	// Lockout state. LoginRetryLimit counts the attempts left.
	LoginRetryLimit   int        `json:"-"`
	LoginReactiveTime *time.Time `json:"-"`

	// One-time reset credential.
	ResetCode      *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	AddedBy   *string   `json:"addedBy,omitempty"`
	UpdatedBy *string   `json:"updatedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LockedUntil reports whether the identity is inside a lockout window at now,
// and when that window ends.
func (user *User) LockedUntil(now time.Time) (time.Time, bool) {
	if user.LoginRetryLimit > 0 || user.LoginReactiveTime == nil {
		return time.Time{}, false
	}
	if !now.Before(*user.LoginReactiveTime) {
		return time.Time{}, false
	}
	return *user.LoginReactiveTime, true
}

// LockoutExpired reports whether the counter is exhausted but the window has passed.
func (user *User) LockoutExpired(now time.Time) bool {
	if user.LoginRetryLimit > 0 {
		return false
	}
	_, locked := user.LockedUntil(now)
	return !locked
}

// HasPassword reports whether the identity can use credential login.
// Federated-only identities are created without one.
func (user *User) HasPassword() bool {
	return user.PasswordHash != ""
}

// Session represents an active refresh-token session.
type Session struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Platform  sec.Platform `json:"platform"`
	TokenHash string       `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string       `json:"userAgent"`
	IPAddress string       `json:"ipAddress"`
	ExpiresAt time.Time    `json:"expiresAt"`
	IsRevoked bool         `json:"isRevoked"`
	CreatedAt time.Time    `json:"createdAt"`
}

// IssuedToken is the revocation record kept for every access token handed out.
type IssuedToken struct {
	UserID    string       `json:"userId"`
	Platform  sec.Platform `json:"platform"`
	IssuedAt  time.Time    `json:"issuedAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// # Federated Identity

// Provider names a federated identity source.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderDevice   Provider = "firebase"
)

// ExternalIdentity is the verified subject returned by a federated verifier.
type ExternalIdentity struct {
	Provider Provider
	Subject  string
	Email    string
	Name     string
	Disabled bool
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldID           = "id"
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldName         = "name"
	FieldUserType     = "userType"
	FieldOTP          = "otp"
	FieldCode         = "code"
	FieldNewPassword  = "newPassword"
	FieldOldPassword  = "oldPassword"
	FieldToken        = "token"
	FieldRefreshToken = "refreshToken"
	FieldUser         = "user"
	FieldAuthToken    = "authorization"
	FieldIDToken      = "idToken"
	FieldAccessToken  = "accessToken"
)
