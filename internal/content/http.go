// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/middleware"
	requestutil "github.com/taibuivan/toeic/internal/platform/request"
	"github.com/taibuivan/toeic/internal/platform/respond"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/pkg/convert"
	"github.com/taibuivan/toeic/pkg/pagination"
	"github.com/taibuivan/toeic/pkg/query"
)

// # Definitions & Constructors

// Handler exposes the document collections of one platform.
type Handler struct {
	contentService *Service
	platform       sec.Platform
}

// NewHandler constructs a new [Handler] bound to platform.
func NewHandler(service *Service, platform sec.Platform) *Handler {
	return &Handler{contentService: service, platform: platform}
}

// Register mounts the collection routes on router.
//
// # Endpoints
//   - POST   /{kind}/create            : Inserts one document.
//   - POST   /{kind}/addBulk           : Inserts {data: [...]}.
//   - POST   /{kind}/list              : Filtered page {query, options, isCountOnly}.
//   - POST   /{kind}/count             : Count of {where}.
//   - GET    /{kind}/{id}              : One document.
//   - PUT    /{kind}/update/{id}       : Replaces the payload.
//   - PUT    /{kind}/partial-update/{id}: Merges the payload.
//   - PUT    /{kind}/updateBulk        : Merges {data} into every match of {filter}.
//   - PUT    /{kind}/softDelete/{id}   : Flags one document and its dependents.
//   - PUT    /{kind}/softDeleteMany    : Flags {ids}.
//   - DELETE /{kind}/delete/{id}       : Removes one document and its dependents.
//   - POST   /{kind}/deleteMany        : Removes {ids}.
//
// Every delete accepts isWarning (body or query) to preview the cascade.
func (handler *Handler) Register(router chi.Router) {
	router.Post("/{kind}/create", handler.create)
	router.Post("/{kind}/addBulk", handler.addBulk)
	router.Post("/{kind}/list", handler.list)
	router.Post("/{kind}/count", handler.count)
	router.Get("/{kind}/{id}", handler.get)
	router.Put("/{kind}/update/{id}", handler.update)
	router.Put("/{kind}/partial-update/{id}", handler.partialUpdate)
	router.Put("/{kind}/updateBulk", handler.updateBulk)
	router.Put("/{kind}/softDelete/{id}", handler.softDelete)
	router.Put("/{kind}/softDeleteMany", handler.softDeleteMany)
	router.Delete("/{kind}/delete/{id}", handler.delete)
	router.Post("/{kind}/deleteMany", handler.deleteMany)
}

// # Request Payloads

type bulkRequest struct {
	Data []map[string]any `json:"data"`
}

type listOptions struct {
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Pagination *bool          `json:"pagination"`
	Sort       map[string]int `json:"sort"`
}

type listRequest struct {
	Query       map[string]any `json:"query"`
	Options     listOptions    `json:"options"`
	IsCountOnly bool           `json:"isCountOnly"`
}

type countRequest struct {
	Where map[string]any `json:"where"`
}

type updateBulkRequest struct {
	Filter map[string]any `json:"filter"`
	Data   map[string]any `json:"data"`
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	IsWarning bool     `json:"isWarning"`
}

type countResponse struct {
	TotalRecords int `json:"totalRecords"`
}

type bulkUpdateResponse struct {
	Updated int `json:"updated"`
}

// # Handlers

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	kind, err := handler.writable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload map[string]any
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	document, err := handler.contentService.Create(request.Context(), kind, payload, actorOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, document)
}

func (handler *Handler) addBulk(writer http.ResponseWriter, request *http.Request) {
	kind, err := handler.writable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input bulkRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	documents, err := handler.contentService.CreateMany(request.Context(), kind, input.Data, actorOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, documents)
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	kind, err := handler.readable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input listRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	paginate := input.Options.Pagination == nil || *input.Options.Pagination
	result, err := handler.contentService.List(request.Context(), kind, ListInput{
		Filter:      input.Query,
		Sort:        sortFields(input.Options.Sort),
		Page:        pagination.New(input.Options.Page, input.Options.Limit),
		Paginate:    paginate,
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
	respond.Paginated(writer, result.Documents, result.Meta)
}

func (handler *Handler) count(writer http.ResponseWriter, request *http.Request) {
	kind, err := handler.readable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input countRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	total, err := handler.contentService.Count(request.Context(), kind, input.Where)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, countResponse{TotalRecords: total})
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	kind, err := handler.readable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	document, err := handler.contentService.Get(request.Context(), kind, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, document)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	handler.write(writer, request, false)
}

func (handler *Handler) partialUpdate(writer http.ResponseWriter, request *http.Request) {
	handler.write(writer, request, true)
}

func (handler *Handler) write(writer http.ResponseWriter, request *http.Request, partial bool) {
	kind, err := handler.writable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload map[string]any
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	document, err := handler.contentService.Update(request.Context(), kind, requestutil.ID(request, "id"), payload, partial, actorOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, document)
}

func (handler *Handler) updateBulk(writer http.ResponseWriter, request *http.Request) {
	kind, err := handler.writable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateBulkRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.contentService.UpdateBulk(request.Context(), kind, input.Filter, input.Data, actorOf(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, bulkUpdateResponse{Updated: updated})
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
	kind, err := handler.writable(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := decodeDelete(request, many)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var result *DeleteResult
	if hard {
		result, err = handler.contentService.Delete(request.Context(), kind, input.IDs, input.IsWarning)
	} else {
		result, err = handler.contentService.SoftDelete(request.Context(), kind, input.IDs, actorOf(request), input.IsWarning)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// # Helpers

// readable resolves the {kind} segment.
func (handler *Handler) readable(request *http.Request) (Kind, error) {
	kind, _, ok := Lookup(requestutil.Param(request, "kind"))
	if !ok {
		return "", apperr.NotFound("Collection")
	}
	return kind, nil
}

// writable resolves the {kind} segment and checks the caller may change it.
func (handler *Handler) writable(request *http.Request) (Kind, error) {
	kind, spec, ok := Lookup(requestutil.Param(request, "kind"))
	if !ok {
		return "", apperr.NotFound("Collection")
	}

	claims := middleware.GetUser(request.Context())
	if claims == nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	if !claims.UserType.IsAdmin() && !spec.ClientWritable {
		return "", apperr.Forbidden("You do not have permission to modify " + string(kind))
	}
	return kind, nil
}

// decodeDelete reads the ids (path, body or ?ids=a,b) and the warning flag.
func decodeDelete(request *http.Request, many bool) (deleteRequest, error) {
	var input deleteRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			return input, err
		}
	}

	if raw := request.URL.Query().Get("isWarning"); raw != "" {
		input.IsWarning = convert.ToBool(raw)
	}

	if !many {
		input.IDs = []string{requestutil.ID(request, "id")}
	} else if len(input.IDs) == 0 {
		input.IDs = query.StringSlice(request.URL.Query().Get("ids"))
	}

	if len(input.IDs) == 0 || strings.TrimSpace(input.IDs[0]) == "" {
		return input, apperr.BadRequest("Insufficient request parameters! ids is required.")
	}
	return input, nil
}

// sortFields turns {"name": 1, "createdAt": -1} into a stable ordering.
func sortFields(raw map[string]int) []SortField {
	if len(raw) == 0 {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]SortField, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, SortField{Field: key, Descending: raw[key] < 0})
	}
	return fields
}

func actorOf(request *http.Request) string {
	if claims := middleware.GetUser(request.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}
