// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the HTTP delivery layer for user management.

# Security

All endpoints require an authenticated identity. Mutations of other users are
additionally restricted to administrators by the permission gate mounted in
front of this router.
*/
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/toeic/internal/platform/request"
	"github.com/taibuivan/toeic/internal/platform/respond"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/auth"
	"github.com/taibuivan/toeic/pkg/convert"
	"github.com/taibuivan/toeic/pkg/pagination"
	"github.com/taibuivan/toeic/pkg/pointer"
	"github.com/taibuivan/toeic/pkg/query"
)

// Handler implements the HTTP layer for user account management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Self service
	router.Get("/me", handler.getMe)
	router.Put("/update-profile", handler.updateProfile)
	router.Put("/change-password", handler.changePassword)

	// User collection
	router.Post("/list", handler.list)
	router.Post("/count", handler.count)
	router.Get("/{id}", handler.get)
	router.Put("/update/{id}", handler.update)
	router.Put("/partial-update/{id}", handler.partialUpdate)
	router.Put("/softDelete/{id}", handler.softDelete)
	router.Put("/softDeleteMany", handler.softDeleteMany)
	router.Delete("/delete/{id}", handler.delete)
	router.Post("/deleteMany", handler.deleteMany)

	return router
}

// # Request Payloads

// reservedKeys never reach the profile column.
var reservedKeys = map[string]bool{
	auth.FieldID: true, "_id": true, auth.FieldUsername: true, auth.FieldEmail: true,
	auth.FieldPassword: true, auth.FieldName: true, auth.FieldUserType: true,
	"isActive": true, "isDeleted": true, "addedBy": true, "updatedBy": true,
	"createdAt": true, "updatedAt": true, "ssoAuth": true, "resetPasswordLink": true,
	"loginRetryLimit": true, "loginReactiveTime": true, "googleId": true,
	"facebookId": true, "firebaseUid": true,
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type filterRequest struct {
	Username *string  `json:"username"`
	Email    *string  `json:"email"`
	UserType *float64 `json:"userType"`
	IsActive *bool    `json:"isActive"`
}

func (input filterRequest) filter() Filter {
	filter := Filter{Username: input.Username, Email: input.Email, IsActive: input.IsActive}
	if input.UserType != nil {
		filter.UserType = pointer.To(sec.UserType(*input.UserType))
	}
	return filter
}

type listRequest struct {
	Query   filterRequest `json:"query"`
	Options struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Pagination *bool `json:"pagination"`
	} `json:"options"`
	IsCountOnly bool `json:"isCountOnly"`
}

type countRequest struct {
	Where filterRequest `json:"where"`
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	IsWarning bool     `json:"isWarning"`
}

type countResponse struct {
	TotalRecords int `json:"totalRecords"`
}

// # Self Service Endpoints

/*
GET /user/me.

Response:
  - 200: User: Fully hydrated user profile
  - 401: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
PUT /user/update-profile.

Request:
  - body: {name?, email?, ...profile keys}

Response:
  - 200: User: The updated profile
  - 400: Validation failures
  - 409: Email already taken
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body map[string]any
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), userID, ProfileInput{
		Name:    stringPointer(body, auth.FieldName),
		Email:   stringPointer(body, auth.FieldEmail),
		Profile: profileOf(body),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
PUT /user/change-password.

Description: Every other token of the caller is revoked; the one used for
this call keeps working.
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := ctxutil.GetBearerToken(request.Context())
	if err := handler.accountService.ChangePassword(request.Context(), userID, token, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password changed successfully")
}

// # User Collection Endpoints

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	var input listRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	result, err := handler.accountService.List(request.Context(), ListInput{
		Filter:      input.Query.filter(),
		Page:        pagination.New(input.Options.Page, input.Options.Limit),
		Paginate:    pointer.Fallback(input.Options.Pagination, true),
		IsCountOnly: input.IsCountOnly,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.IsCountOnly {
		respond.OK(writer, countResponse{TotalRecords: result.Total})
		return
	}
	respond.Paginated(writer, result.Users, result.Meta)
}

func (handler *Handler) count(writer http.ResponseWriter, request *http.Request) {
	var input countRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	total, err := handler.accountService.Count(request.Context(), input.Where.filter())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, countResponse{TotalRecords: total})
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.accountService.Get(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	handler.write(writer, request, false)
}

func (handler *Handler) partialUpdate(writer http.ResponseWriter, request *http.Request) {
	handler.write(writer, request, true)
}

func (handler *Handler) write(writer http.ResponseWriter, request *http.Request, partial bool) {
	var body map[string]any
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	changes := Changes{
		Username: stringPointer(body, auth.FieldUsername),
		Email:    stringPointer(body, auth.FieldEmail),
		Name:     stringPointer(body, auth.FieldName),
		Profile:  profileOf(body),
	}
	if raw, ok := body[auth.FieldUserType].(float64); ok {
		changes.UserType = pointer.To(sec.UserType(raw))
	}
	if active, ok := body["isActive"].(bool); ok {
		changes.IsActive = pointer.To(active)
	}

	user, err := handler.accountService.Update(request.Context(), requestutil.ID(request, "id"), changes, partial, actorOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

func (handler *Handler) softDelete(writer http.ResponseWriter, request *http.Request) {
	handler.remove(writer, request, false, false)
}

func (handler *Handler) softDeleteMany(writer http.ResponseWriter, request *http.Request) {
	handler.remove(writer, request, true, false)
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	handler.remove(writer, request, false, true)
}

func (handler *Handler) deleteMany(writer http.ResponseWriter, request *http.Request) {
	handler.remove(writer, request, true, true)
}

func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request, many, hard bool) {
	var input deleteRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}
	if raw := request.URL.Query().Get("isWarning"); raw != "" {
		input.IsWarning = convert.ToBool(raw)
	}

	switch {
	case !many:
		input.IDs = []string{requestutil.ID(request, "id")}
	case len(input.IDs) == 0:
		input.IDs = query.StringSlice(request.URL.Query().Get("ids"))
	}

	remove := handler.accountService.SoftDelete
	if hard {
		remove = handler.accountService.Delete
	}

	result, err := remove(request.Context(), input.IDs, actorOf(request), input.IsWarning)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// # Helpers

func stringPointer(body map[string]any, key string) *string {
	if value, ok := body[key].(string); ok {
		return pointer.To(value)
	}
	return nil
}

// profileOf collects the keys that are not identity columns.
func profileOf(body map[string]any) map[string]any {
	var profile map[string]any
	for key, value := range body {
		if reservedKeys[key] {
			continue
		}
		if profile == nil {
			profile = make(map[string]any)
		}
		profile[key] = value
	}
	return profile
}

func actorOf(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}
