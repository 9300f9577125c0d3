// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultAccessTokenTTL is the lifetime of a bearer token when config omits it.
	DefaultAccessTokenTTL = 3 * time.Hour

	// DefaultRefreshTokenTTL is the lifetime of a refresh session.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32

	// DefaultMaxLoginRetryLimit is the number of wrong passwords allowed before lockout.
	DefaultMaxLoginRetryLimit = 3

	// DefaultLoginReactiveTime is how long an exhausted identity stays locked.
	DefaultLoginReactiveTime = 20 * time.Minute

	// DefaultOTPTTL is how long a password reset code stays usable.
	DefaultOTPTTL = 20 * time.Minute

	// ResetCodeLength is the byte length of the reset code (64 hex characters).
	ResetCodeLength = 32

	// MinPasswordLength applies to registration and password changes.
	MinPasswordLength = 6

	// DefaultNotifyTimeout bounds a single notification delivery.
	DefaultNotifyTimeout = 10 * time.Second
)
