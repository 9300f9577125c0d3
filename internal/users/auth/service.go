// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the core identity and access management (IAM) system.

It handles registration, credential and federated login, the login lockout
state machine, platform-scoped bearer tokens (revocation records in Redis),
refresh sessions (Postgres) and the forgot/reset password flow.

Architecture:

  - Service: Orchestrates business logic (Register, Login, Recovery).
  - Repository: Abstracted interfaces for Postgres (Users, Sessions) and Redis (Issued tokens).
  - Security: Bcrypt password hashes and RSA-signed JWTs.

The package ensures that identity data remains consistent and secure throughout
the platform's lifecycle.
*/
package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/metrics"
	"github.com/taibuivan/toeic/internal/platform/notify"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/pkg/slug"
	"github.com/taibuivan/toeic/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for signing and verifying access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT bound to platform.
	GenerateAccessToken(userID, username string, userType sec.UserType, platform sec.Platform, timeToLive time.Duration) (*sec.IssuedAccessToken, error)

	// VerifyToken checks signature, issuer and expiry.
	VerifyToken(token string) (*sec.AuthClaims, error)
}

// Config holds the tunables of the authentication flows.
type Config struct {
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	MaxLoginRetryLimit int
	LoginReactiveTime  time.Duration
	OTPTTL             time.Duration

	// ClientURL prefixes reset links; it ends with a slash.
	ClientURL string

	NotifyDriver  string
	NotifyTimeout time.Duration
	SSOTimeout    time.Duration
}

// withDefaults fills zero values.
func (cfg Config) withDefaults() Config {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.MaxLoginRetryLimit <= 0 {
		cfg.MaxLoginRetryLimit = DefaultMaxLoginRetryLimit
	}
	if cfg.LoginReactiveTime <= 0 {
		cfg.LoginReactiveTime = DefaultLoginReactiveTime
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = DefaultOTPTTL
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.SSOTimeout <= 0 {
		cfg.SSOTimeout = 5 * time.Second
	}
	if cfg.NotifyDriver == "" {
		cfg.NotifyDriver = "log"
	}
	return cfg
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// token issuance or recovery logic must be reviewed by the security team.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	tokenRepository   IssuedTokenRepository
	tokenProvider     TokenProvider
	notifier          notify.Sender
	verifiers         map[Provider]Verifier
	metrics           *metrics.Metrics
	clock             clockwork.Clock
	logger            *slog.Logger
	config            Config
}

// Option customizes a [Service].
type Option func(*Service)

// WithNotifier sets the channel used for reset emails.
func WithNotifier(sender notify.Sender) Option {
	return func(service *Service) { service.notifier = sender }
}

// WithVerifier registers a federated verifier under its provider.
func WithVerifier(verifier Verifier) Option {
	return func(service *Service) { service.verifiers[verifier.Provider()] = verifier }
}

// WithMetrics records auth outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(service *Service) { service.metrics = m }
}

// WithClock replaces the wall clock (tests use a fake one).
func WithClock(clock clockwork.Clock) Option {
	return func(service *Service) { service.clock = clock }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(service *Service) { service.logger = logger }
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	tokenRepo IssuedTokenRepository,
	tokenProv TokenProvider,
	cfg Config,
	options ...Option,
) *Service {
	service := &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		tokenRepository:   tokenRepo,
		tokenProvider:     tokenProv,
		verifiers:         make(map[Provider]Verifier),
		clock:             clockwork.NewRealClock(),
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		config:            cfg.withDefaults(),
	}

	for _, option := range options {
		option(service)
	}

	if service.notifier == nil {
		service.notifier = notify.NewLogSender(service.logger)
	}
	return service
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new identity.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string

	// UserType zero means the platform default.
	UserType sec.UserType

	// Profile carries the remaining business fields verbatim.
	Profile map[string]any
}

/*
Register validates, hashes, and persists a brand new identity.

Parameters:
  - context: context.Context
  - platform: sec.Platform (registering namespace)
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Validation, Duplicate or storage errors
*/
func (service *Service) Register(context context.Context, platform sec.Platform, input RegisterInput) (*User, error) {
	userType := input.UserType
	if userType == 0 {
		userType = sec.DefaultUserType(platform)
	}
	if !userType.Valid() || !userType.AllowedOn(platform) {
		return nil, apperr.ValidationError("Invalid values in parameters, userType is not allowed on this platform",
			apperr.FieldError{Field: FieldUserType, Message: "is not allowed on this platform"})
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Verify username uniqueness up front for a precise message; the unique
	// index still catches concurrent registrations.
	if err := service.ensureAvailable(context, service.userRepository.FindByUsername, input.Username,
		"username already exists", FieldUsername); err != nil {
		return nil, err
	}
	if err := service.ensureAvailable(context, service.userRepository.FindByEmail, email,
		"email already exists", FieldEmail); err != nil {
		return nil, err
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:              uuid.New(),
		Username:        strings.TrimSpace(input.Username),
		Email:           email,
		PasswordHash:    hashedPassword,
		Name:            input.Name,
		UserType:        userType,
		Profile:         input.Profile,
		IsActive:        true,
		LoginRetryLimit: service.config.MaxLoginRetryLimit,
		CreatedAt:       service.clock.Now(),
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "auth_user_registered",
		slog.String("user_id", user.ID),
		slog.String("platform", string(platform)),
	)
	return user, nil
}

// ensureAvailable fails with Duplicate when lookup finds an identity.
func (service *Service) ensureAvailable(
	context context.Context,
	lookup func(context.Context, string) (*User, error),
	value, message, field string,
) error {
	_, err := lookup(context, value)
	if err == nil {
		return apperr.Duplicate(message, apperr.FieldError{Field: field, Message: "already exists"})
	}
	if apperr.IsNotFound(err) {
		return nil
	}
	return err
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Handle    string // Can be Username or Email
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
Login validates credentials and issues platform-scoped tokens.

Description: Runs the lockout state machine. An expired window resets the
counter before the comparison; each mismatch consumes one attempt and the
attempt that exhausts the counter starts a new window.

Parameters:
  - context: context.Context
  - platform: sec.Platform
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - error: NotFound (as 400), Authorization, AccountLocked, InvalidCredentials
*/
func (service *Service) Login(context context.Context, platform sec.Platform, input LoginInput) (*LoginSession, error) {
	user, err := service.userRepository.FindByLogin(context, strings.TrimSpace(input.Handle))
	if err != nil {
		if apperr.IsNotFound(err) {
			service.metrics.LoginAttempt(string(platform), "password", metrics.OutcomeNotFound)
			return nil, apperr.RecordNotFound("User not exists").AsBadRequest()
		}
		return nil, err
	}

	if err := service.checkAccess(context, platform, user, "password"); err != nil {
		return nil, err
	}

	// ── Lockout ──────────────────────────────────────────────────────────
	now := service.clock.Now()
	if until, locked := user.LockedUntil(now); locked {
		service.metrics.LoginAttempt(string(platform), "password", metrics.OutcomeLocked)
		return nil, apperr.AccountLocked(until.Sub(now))
	}

	if user.LockoutExpired(now) {
		if err := service.userRepository.ResetLoginAttempts(context, user.ID, service.config.MaxLoginRetryLimit); err != nil {
			return nil, err
		}
		user.LoginRetryLimit = service.config.MaxLoginRetryLimit
		user.LoginReactiveTime = nil
	}

	// ── Credential Comparison ────────────────────────────────────────────
	if !user.HasPassword() || !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, service.recordFailure(context, platform, user, now)
	}

	if user.LoginRetryLimit != service.config.MaxLoginRetryLimit || user.LoginReactiveTime != nil {
		if err := service.userRepository.ResetLoginAttempts(context, user.ID, service.config.MaxLoginRetryLimit); err != nil {
			return nil, err
		}
	}

	session, err := service.issueSession(context, platform, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	service.metrics.LoginAttempt(string(platform), "password", metrics.OutcomeSuccess)
	service.logger.InfoContext(context, "auth_login_succeeded",
		slog.String("user_id", user.ID),
		slog.String("platform", string(platform)),
	)
	return session, nil
}

// recordFailure consumes one attempt. The attempt that exhausts the counter
// opens the lockout window but is still rejected as a wrong password.
func (service *Service) recordFailure(context context.Context, platform sec.Platform, user *User, now time.Time) error {
	remaining, reactiveAt, err := service.userRepository.RecordFailedLogin(context, user.ID, now, service.config.LoginReactiveTime)
	if err != nil {
		return err
	}

	if remaining == 0 && reactiveAt != nil {
		service.metrics.LoginAttempt(string(platform), "password", metrics.OutcomeLocked)
		service.metrics.Lockout(string(platform))
		service.logger.WarnContext(context, "auth_account_locked",
			slog.String("user_id", user.ID),
			slog.Time("reactive_at", *reactiveAt),
		)
	} else {
		service.metrics.LoginAttempt(string(platform), "password", metrics.OutcomeBadPassword)
	}
	return apperr.InvalidCredentials("Incorrect password")
}

// checkAccess rejects inactive identities and types not served by platform.
func (service *Service) checkAccess(context context.Context, platform sec.Platform, user *User, method string) error {
	if !user.IsActive {
		service.metrics.LoginAttempt(string(platform), method, metrics.OutcomeForbidden)
		return apperr.Unauthorized("You are blocked by Admin, please contact to Admin")
	}
	if !user.UserType.AllowedOn(platform) {
		service.metrics.LoginAttempt(string(platform), method, metrics.OutcomeForbidden)
		service.logger.WarnContext(context, "auth_platform_denied",
			slog.String("user_id", user.ID),
			slog.String("platform", string(platform)),
		)
		return apperr.Unauthorized("You are unable to access this platform")
	}
	return nil
}

// issueSession signs an access token, records it and opens a refresh session.
func (service *Service) issueSession(context context.Context, platform sec.Platform, user *User, userAgent, ipAddress string) (*LoginSession, error) {
	issued, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Username, user.UserType, platform, service.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	now := service.clock.Now()
	record := IssuedToken{
		UserID:    user.ID,
		Platform:  platform,
		IssuedAt:  now,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := service.tokenRepository.Record(context, issued.Token, record, service.config.AccessTokenTTL); err != nil {
		return nil, fmt.Errorf("auth_service_token_record_failed: %w", err)
	}

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := now.Add(service.config.RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Platform:  platform,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           issued.Token,
		AccessTokenExpiresAt:  issued.ExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// # Federated Flow

// FederatedInput is a provider credential presented for sign-in.
type FederatedInput struct {
	Provider   Provider
	Credential string
	UserAgent  string
	IPAddress  string
}

/*
LoginFederated signs in with a provider credential.

Description: The device platform accepts only Firebase ID tokens, the admin
and client platforms accept Google and Facebook. The local identity is found
by provider subject, then by email (and linked), and is otherwise created
without a password. Lockout counters are never touched.

Returns:
  - *LoginSession: Platform-scoped tokens
  - error: InvalidToken, UpstreamTimeout or Authorization
*/
func (service *Service) LoginFederated(context context.Context, platform sec.Platform, input FederatedInput) (*LoginSession, error) {
	if (input.Provider == ProviderDevice) != (platform == sec.PlatformDevice) {
		return nil, apperr.BadRequest(fmt.Sprintf("Provider %q is not available on this platform", input.Provider))
	}

	verifier, ok := service.verifiers[input.Provider]
	if !ok {
		return nil, apperr.BadRequest(fmt.Sprintf("Provider %q is not configured", input.Provider))
	}

	verifyContext, cancel := contextWithTimeout(context, service.config.SSOTimeout)
	identity, err := verifier.Verify(verifyContext, input.Credential)
	cancel()
	if err != nil {
		service.metrics.LoginAttempt(string(platform), string(input.Provider), metrics.OutcomeInvalid)
		return nil, err
	}

	user, err := service.resolveExternal(context, platform, identity)
	if err != nil {
		return nil, err
	}

	if identity.Disabled && user.IsActive {
		if err := service.userRepository.SetActive(context, user.ID, false); err != nil {
			return nil, err
		}
		user.IsActive = false
	}

	if err := service.checkAccess(context, platform, user, string(input.Provider)); err != nil {
		return nil, err
	}

	session, err := service.issueSession(context, platform, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	service.metrics.LoginAttempt(string(platform), string(input.Provider), metrics.OutcomeSuccess)
	return session, nil
}

// resolveExternal finds, links or creates the identity behind a verified subject.
func (service *Service) resolveExternal(context context.Context, platform sec.Platform, identity *ExternalIdentity) (*User, error) {
	user, err := service.userRepository.FindByExternalID(context, identity.Provider, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	if identity.Email != "" {
		user, err = service.userRepository.FindByEmail(context, identity.Email)
		switch {
		case err == nil:
			if err := service.userRepository.LinkExternalID(context, user.ID, identity.Provider, identity.Subject); err != nil {
				return nil, err
			}
			service.logger.InfoContext(context, "auth_external_identity_linked",
				slog.String("user_id", user.ID),
				slog.String("provider", string(identity.Provider)),
			)
			return user, nil
		case !apperr.IsNotFound(err):
			return nil, err
		}
	}

	username, err := service.uniqueUsername(context, identity)
	if err != nil {
		return nil, err
	}

	email := identity.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s.invalid", identity.Subject, identity.Provider)
	}

	subject := identity.Subject
	user = &User{
		ID:              uuid.New(),
		Username:        username,
		Email:           email,
		Name:            identity.Name,
		UserType:        sec.DefaultUserType(platform),
		IsActive:        !identity.Disabled,
		LoginRetryLimit: service.config.MaxLoginRetryLimit,
		CreatedAt:       service.clock.Now(),
	}
	switch identity.Provider {
	case ProviderGoogle:
		user.GoogleID = &subject
	case ProviderFacebook:
		user.FacebookID = &subject
	case ProviderDevice:
		user.FirebaseUID = &subject
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "auth_external_user_created",
		slog.String("user_id", user.ID),
		slog.String("provider", string(identity.Provider)),
	)
	return user, nil
}

// uniqueUsername derives a free username from the provider profile.
func (service *Service) uniqueUsername(context context.Context, identity *ExternalIdentity) (string, error) {
	base := identity.Name
	if base == "" {
		base, _, _ = strings.Cut(identity.Email, "@")
	}
	base = slug.From(base)
	if base == "" {
		base = "user"
	}

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		_, err := service.userRepository.FindByUsername(context, candidate)
		if apperr.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}

		suffix, err := sec.GenerateSecureToken(3)
		if err != nil {
			return "", fmt.Errorf("auth_service_username_suffix_failed: %w", err)
		}
		candidate = base + "-" + suffix
	}

	return base + "-" + strings.ReplaceAll(uuid.New(), "-", "")[:12], nil
}

// # Token Verification

/*
Authenticate validates a bearer token presented on platform.

Description: The signature and expiry must hold, the platform claim must
equal the route platform, the revocation record must still exist and the
owner must be active and not deleted.

Returns:
  - *sec.AuthClaims: Verified claims
  - error: InvalidToken or Authorization
*/
func (service *Service) Authenticate(context context.Context, platform sec.Platform, token string) (*sec.AuthClaims, error) {
	claims, err := service.tokenProvider.VerifyToken(token)
	if err != nil {
		return nil, apperr.InvalidToken("Invalid or expired token")
	}

	if claims.Platform != platform {
		return nil, apperr.Unauthorized("Token is not valid for this platform")
	}

	issued, err := service.tokenRepository.Find(context, token)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.InvalidToken("Token has been revoked")
		}
		return nil, err
	}
	if issued.Platform != platform || issued.UserID != claims.UserID {
		return nil, apperr.Unauthorized("Token is not valid for this platform")
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("User not found or deleted")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("You are blocked by Admin, please contact to Admin")
	}

	return claims, nil
}

// # Session Management

/*
Logout revokes the presented access token and, when given, its refresh session.

Description: Idempotent. Tokens already revoked or expired are not an error.
*/
func (service *Service) Logout(context context.Context, accessToken, refreshToken string) error {
	revoked, err := service.tokenRepository.Revoke(context, accessToken)
	if err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	if revoked {
		service.metrics.TokensRevoked(1)
	}

	if refreshToken == "" {
		return nil
	}

	session, err := service.sessionRepository.FindByTokenHash(context, sec.HashToken(refreshToken))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Verifies the existing refresh token on its own platform, revokes
it to prevent reuse and issues a fresh pair.

Returns:
  - *LoginSession: New session credentials
  - error: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, platform sec.Platform, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {
	session, err := service.sessionRepository.FindByTokenHash(context, sec.HashToken(refreshToken))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, err
	}

	if session.Platform != platform {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: Revoke the old session to prevent replay attacks
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("User not found or deleted")
		}
		return nil, err
	}

	if err := service.checkAccess(context, platform, user, "refresh"); err != nil {
		return nil, err
	}

	return service.issueSession(context, platform, user, userAgent, ipAddress)
}

/*
ChangePassword lets an authenticated identity replace its password.

Description: Verifies the old password, then revokes every other issued token
and all refresh sessions. The token used for this call stays valid.
*/
func (service *Service) ChangePassword(context context.Context, userID, currentToken, oldPassword, newPassword string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !user.HasPassword() || !sec.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperr.InvalidCredentials("Incorrect old password")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return err
	}

	count, err := service.tokenRepository.RevokeAll(context, userID, currentToken)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}
	service.metrics.TokensRevoked(count)

	if err := service.sessionRepository.RevokeAll(context, userID); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	service.logger.InfoContext(context, "auth_password_changed", slog.String("user_id", userID))
	return nil
}

// RevokeCredentials invalidates every issued token and refresh session of userID.
func (service *Service) RevokeCredentials(context context.Context, userID string) error {
	count, err := service.tokenRepository.RevokeAll(context, userID, "")
	if err != nil {
		return fmt.Errorf("auth_service_revoke_credentials_failed: %w", err)
	}
	service.metrics.TokensRevoked(count)

	if err := service.sessionRepository.RevokeAll(context, userID); err != nil {
		return fmt.Errorf("auth_service_revoke_credentials_failed: %w", err)
	}
	return nil
}
