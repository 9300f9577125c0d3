// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/account"
)

type envelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func newRouter(f *fixture, claims *sec.AuthClaims, bearer string) http.Handler {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctx = ctxutil.WithBearerToken(ctx, bearer)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	})
	router.Mount("/user", account.NewHandler(f.service).Routes())
	return router
}

func send(t *testing.T, handler http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, path, bytes.NewReader(payload)))

	var decoded envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	return recorder.Code, decoded
}

/*
TestHandler_SelfService exercises me, update-profile and change-password.
*/
func TestHandler_SelfService(t *testing.T) {
	f := newFixture(t)
	id := f.seed("karli87", sec.UserTypeUser, nil)
	claims := &sec.AuthClaims{UserID: id, Username: "karli87", UserType: sec.UserTypeUser, Platform: sec.PlatformClient}
	router := newRouter(f, claims, "bearer-token")

	status, body := send(t, router, http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "karli87", body.Data["username"])
	assert.NotContains(t, body.Data, "passwordHash")

	status, body = send(t, router, http.MethodPut, "/user/update-profile", map[string]any{
		"name": "Karli", "userType": 2, "phone": "0901",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Karli", body.Data["name"])
	assert.Equal(t, float64(sec.UserTypeUser), body.Data["userType"], "user type is not self-editable")
	assert.Equal(t, "0901", body.Data["profile"].(map[string]any)["phone"])

	status, body = send(t, router, http.MethodPut, "/user/change-password", map[string]any{"newPassword": "Secret#456"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.StatusBadRequest, body.Status)

	status, body = send(t, router, http.MethodPut, "/user/change-password", map[string]any{
		"oldPassword": "Secret#123", "newPassword": "Secret#456",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Password changed successfully", body.Message)
	require.Len(t, f.credentials.changes, 1)
	assert.Equal(t, "bearer-token", f.credentials.changes[0].token)
}

/*
TestHandler_Collection exercises list, update and the delete preview.
*/
func TestHandler_Collection(t *testing.T) {
	f := newFixture(t)
	admin := f.seed("root", sec.UserTypeAdmin, nil)
	student := f.seed("student", sec.UserTypeUser, &admin)
	claims := &sec.AuthClaims{UserID: admin, Username: "root", UserType: sec.UserTypeAdmin, Platform: sec.PlatformAdmin}
	router := newRouter(f, claims, "")

	status, body := send(t, router, http.MethodPost, "/user/list", map[string]any{"isCountOnly": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body.Data["totalRecords"])

	status, body = send(t, router, http.MethodPost, "/user/list", map[string]any{"query": map[string]any{"username": "ghost"}})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperr.StatusRecordNotFound, body.Status)

	status, body = send(t, router, http.MethodPut, "/user/partial-update/"+student, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body.Data["isActive"])
	assert.Equal(t, []string{student}, f.credentials.revoked)

	status, body = send(t, router, http.MethodPut, "/user/softDeleteMany", map[string]any{"ids": []string{student}, "isWarning": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Data["isWarning"])
	assert.Equal(t, float64(1), body.Data["deleted"])

	user, _ := f.users.get(student)
	assert.False(t, user.IsDeleted)

	status, _ = send(t, router, http.MethodDelete, "/user/delete/"+student, nil)
	require.Equal(t, http.StatusOK, status)
	_, ok := f.users.get(student)
	assert.False(t, ok)
}
