// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/respond"
	"github.com/taibuivan/toeic/internal/platform/sec"
)

// # Permission Gate

// Policy decides whether an authenticated identity may invoke a route.
type Policy interface {
	Allow(claims *sec.AuthClaims, request *http.Request) bool
}

// PolicyFunc adapts a plain function to [Policy].
type PolicyFunc func(claims *sec.AuthClaims, request *http.Request) bool

// Allow implements [Policy].
func (fn PolicyFunc) Allow(claims *sec.AuthClaims, request *http.Request) bool {
	return fn(claims, request)
}

// userMutations are the action segments a non-admin may not call on /user/ routes.
var userMutations = []string{"update", "addbulk", "delete"}

// userSelfService are /user/ actions every identity may call on itself.
var userSelfService = map[string]bool{
	"me":              true,
	"update-profile":  true,
	"change-password": true,
}

// UserCollectionPolicy is the baseline rule: only admins may update, bulk
// insert, soft-delete or delete records of the user collection. Self-service
// profile routes stay open.
var UserCollectionPolicy = PolicyFunc(func(claims *sec.AuthClaims, request *http.Request) bool {
	if claims.UserType.IsAdmin() {
		return true
	}

	path := strings.ToLower(request.URL.Path)
	index := strings.Index(path, "/user/")
	if index < 0 {
		return true
	}

	action := strings.SplitN(path[index+len("/user/"):], "/", 2)[0]
	if userSelfService[action] {
		return true
	}

	for _, mutation := range userMutations {
		if strings.Contains(action, mutation) {
			return false
		}
	}
	return true
})

// Gate denies the request with 403 unless every policy allows it.
//
// # Usage
//
// Mount AFTER [Authenticate]; anonymous requests are rejected with 401.
func Gate(policies ...Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			for _, policy := range policies {
				if !policy.Allow(claims, request) {
					respond.Error(writer, request, apperr.Forbidden("You are not allowed to access this route"))
					return
				}
			}

			next.ServeHTTP(writer, request)
		})
	}
}
