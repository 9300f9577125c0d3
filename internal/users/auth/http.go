// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth provides the HTTP delivery layer for identity management.

It implements the gateway for the authentication lifecycle, from account
creation to session management and recovery, once per platform.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface with the {status, message, data} envelope.
  - Platform: Every handler instance is bound to one platform (admin, client, device).
  - Verification: Enforces input presence checks before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	"github.com/taibuivan/toeic/internal/platform/middleware"
	requestutil "github.com/taibuivan/toeic/internal/platform/request"
	"github.com/taibuivan/toeic/internal/platform/respond"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints for one platform.
//
// # Scope
//
// This handler manages the identity entry points (Registration, Login,
// Password Reset callbacks). It is mounted outside the bearer-token
// middleware because the device login carries a provider token, not ours.
type Handler struct {
	authService *Service
	platform    sec.Platform
}

// NewHandler constructs a new [Handler] bound to platform.
func NewHandler(service *Service, platform sec.Platform) *Handler {
	return &Handler{authService: service, platform: platform}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register        : Creates a new identity.
//   - POST /login           : Credentials (device: provider bearer token).
//   - POST /forgot-password : Issues and mails a reset code.
//   - POST /validate-otp    : Checks a reset code.
//   - PUT  /reset-password  : Consumes a reset code.
//   - POST /refresh-token   : Rotates a refresh session.
//   - POST /sso/{provider}  : Google / Facebook sign-in (admin, client).
//   - POST /logout          : Revokes the presented token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/validate-otp", handler.validateOTP)
	router.Put("/reset-password", handler.resetPassword)
	router.Post("/refresh-token", handler.refreshToken)
	if handler.platform != sec.PlatformDevice {
		router.Post("/sso/{provider}", handler.sso)
	}

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Platform(handler.platform))
		r.Use(middleware.Authenticate(handler.authService))
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Request Payloads

// registerReserved are keys never copied into the profile.
var registerReserved = map[string]bool{
	FieldID: true, FieldUsername: true, FieldEmail: true, FieldPassword: true,
	FieldName: true, FieldUserType: true, "isActive": true, "isDeleted": true,
	"addedBy": true, "updatedBy": true, "ssoAuth": true, "resetPasswordLink": true,
	"loginRetryLimit": true, "loginReactiveTime": true,
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type validateOTPRequest struct {
	OTP string `json:"otp"`
}

type resetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ssoRequest struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// # Response Payloads

type loginResponse struct {
	ID                    string    `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	UserType              int       `json:"userType"`
	Token                 string    `json:"token"`
	TokenExpiresAt        time.Time `json:"tokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	User                  *User     `json:"user"`
}

func newLoginResponse(session *LoginSession) loginResponse {
	return loginResponse{
		ID:                    session.User.ID,
		Username:              session.User.Username,
		Email:                 session.User.Email,
		UserType:              int(session.User.UserType),
		Token:                 session.AccessToken,
		TokenExpiresAt:        session.AccessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: session.RefreshTokenExpiresAt,
		User:                  session.User,
	}
}

/*
Register handles the creation of a new identity.

POST /{platform}/auth/register

Request:
  - Body: username, email, password, optional name and userType, any extra profile keys

Response:
  - 200: {id}
  - 400: VALIDATION_ERROR
  - 409: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var body map[string]any
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input := RegisterInput{
		Username: stringField(body, FieldUsername),
		Email:    stringField(body, FieldEmail),
		Password: stringField(body, FieldPassword),
		Name:     stringField(body, FieldName),
		Profile:  map[string]any{},
	}
	if raw, ok := body[FieldUserType].(float64); ok {
		input.UserType = sec.UserType(int(raw))
	}
	for key, value := range body {
		if !registerReserved[key] {
			input.Profile[key] = value
		}
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), handler.platform, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldID: user.ID})
}

/*
Login authenticates an identity and issues platform-scoped tokens.

POST /{platform}/auth/login

Request:
  - Body: {username, password}, where username may also be the email
  - Device: Authorization: Bearer <provider ID token>, no body

Response:
  - 200: {id, token, refreshToken, user}
  - 400: User not exists / Incorrect password / locked / missing parameters
  - 401: Inactive identity, wrong platform or rejected provider token
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	if handler.platform == sec.PlatformDevice {
		handler.deviceLogin(writer, request)
		return
	}

	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)

	if err := validator.Insufficient(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), handler.platform, LoginInput{
		Handle:    input.Username,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newLoginResponse(session))
}

// deviceLogin exchanges a Firebase ID token for a device-scoped session.
func (handler *Handler) deviceLogin(writer http.ResponseWriter, request *http.Request) {
	credential, ok := requestutil.BearerToken(request)
	if !ok {
		respond.Error(writer, request, (&validate.Validator{}).Required(FieldAuthToken, "").Insufficient())
		return
	}

	session, err := handler.authService.LoginFederated(request.Context(), handler.platform, FederatedInput{
		Provider:   ProviderDevice,
		Credential: credential,
		UserAgent:  request.UserAgent(),
		IPAddress:  middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newLoginResponse(session))
}

/*
SSO signs in with a Google ID token or a Facebook access token.

POST /{platform}/auth/sso/{provider}

Response:
  - 200: as login
  - 400: Unknown provider or missing token
  - 401: Rejected token
  - 502: Provider did not answer in time
*/
func (handler *Handler) sso(writer http.ResponseWriter, request *http.Request) {
	var input ssoRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	credential := firstNonEmpty(input.IDToken, input.AccessToken, input.Token)
	if err := (&validate.Validator{}).Required(FieldToken, credential).Insufficient(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.LoginFederated(request.Context(), handler.platform, FederatedInput{
		Provider:   Provider(strings.ToLower(requestutil.Param(request, "provider"))),
		Credential: credential,
		UserAgent:  request.UserAgent(),
		IPAddress:  middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newLoginResponse(session))
}

/*
ForgotPassword initiates the password recovery flow.

POST /{platform}/auth/forgot-password

Response:
  - 200: SUCCESS (even when mail delivery failed)
  - 400: Missing email
  - 404: Unknown email
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required(FieldEmail, input.Email).Insufficient(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), strings.TrimSpace(input.Email)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password reset link has been sent to your email")
}

/*
ValidateOTP checks a reset code without consuming it.

POST /{platform}/auth/validate-otp

Response:
  - 200: SUCCESS when live, FAILURE otherwise
  - 400: Missing otp
*/
func (handler *Handler) validateOTP(writer http.ResponseWriter, request *http.Request) {
	var input validateOTPRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required(FieldOTP, input.OTP).Insufficient(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	valid, err := handler.authService.ValidateOTP(request.Context(), input.OTP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !valid {
		respond.Failure(writer, "Invalid OTP")
		return
	}
	respond.Message(writer, "OTP verified")
}

/*
ResetPassword completes the password recovery flow.

PUT /{platform}/auth/reset-password

Response:
  - 200: SUCCESS, or FAILURE when the code is unknown, used or expired
  - 400: Missing code or newPassword, or a weak password for a live code
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCode, input.Code).Required(FieldNewPassword, input.NewPassword)
	if err := validator.Insufficient(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	reset, err := handler.authService.ResetPassword(request.Context(), input.Code, input.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !reset {
		respond.Failure(writer, "Invalid Code")
		return
	}
	respond.Message(writer, "Password reset successfully")
}

/*
RefreshToken rotates a refresh session on this platform.

POST /{platform}/auth/refresh-token

Response:
  - 200: New token pair
  - 401: Missing, revoked or foreign refresh token
*/
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required(FieldRefreshToken, input.RefreshToken).Insufficient(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.RefreshSession(request.Context(), handler.platform,
		input.RefreshToken, request.UserAgent(), middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newLoginResponse(session))
}

/*
Logout revokes the presented bearer token.

POST /{platform}/auth/logout

Request:
  - Body (optional): {refreshToken}

Response:
  - 200: SUCCESS, also when already logged out
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input logoutRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	token := ctxutil.GetBearerToken(request.Context())
	if err := handler.authService.Logout(request.Context(), token, input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Logged out successfully")
}

// # Helpers

func stringField(body map[string]any, key string) string {
	value, _ := body[key].(string)
	return value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
