// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/toeic/internal/platform/request"
	"github.com/taibuivan/toeic/internal/platform/respond"
	"github.com/taibuivan/toeic/internal/platform/sec"
)

// TokenVerifier verifies bearer tokens. auth.Service implements it.
type TokenVerifier interface {
	// Authenticate validates the bearer token for the given route platform
	// (signature, platform claim, revocation record, identity state).
	Authenticate(ctx context.Context, platform sec.Platform, token string) (*sec.AuthClaims, error)
}

// Platform tags every request on the mounted subtree with its platform.
//
// # Usage
//
// Mount once per platform prefix, before [Authenticate].
func Platform(platform sec.Platform) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := ctxutil.WithPlatform(request.Context(), platform)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, verify it against the route platform via [TokenVerifier].
//  4. Inject [*sec.AuthClaims] and the raw token into the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if request.Header.Get("Authorization") == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			token, ok := requestutil.BearerToken(request)
			if !ok {
				respond.Error(writer, request, apperr.InvalidToken("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			platform := ctxutil.GetPlatform(request.Context())
			claims, err := verifier.Authenticate(request.Context(), platform, token)
			if err != nil {
				if !apperr.IsAppError(err) {
					err = apperr.InvalidToken("Invalid or expired token")
				}
				respond.Error(writer, request, err)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctx = ctxutil.WithBearerToken(ctx, token)
			if holder, ok := ctx.Value(authHolderKey{}).(*authHolder); ok {
				holder.claims.Store(claims)
			}
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := GetUser(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireUserType blocks requests unless the authenticated identity has the given type.
//
// It implies [RequireAuth].
func RequireUserType(userType sec.UserType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if claims.UserType != userType {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser retrieves the [*sec.AuthClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.AuthClaims] if the user is authenticated.
//   - nil if the user is anonymous.
func GetUser(ctx context.Context) *sec.AuthClaims {
	return ctxutil.GetAuthUser(ctx)
}

// authHolder carries the verified claims back up to [StructuredLogger].
type authHolder struct {
	claims atomic.Pointer[sec.AuthClaims]
}

type authHolderKey struct{}

func withAuthHolder(ctx context.Context, holder *authHolder) context.Context {
	return context.WithValue(ctx, authHolderKey{}, holder)
}

func (holder *authHolder) get() *sec.AuthClaims {
	return holder.claims.Load()
}
