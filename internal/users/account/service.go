// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/validate"
	"github.com/taibuivan/toeic/internal/users/auth"
	"github.com/taibuivan/toeic/pkg/pagination"
	"github.com/taibuivan/toeic/pkg/pointer"
	"github.com/taibuivan/toeic/pkg/slice"
)

// ErrRecordNotFound is returned when a list, update or delete matched nothing.
var ErrRecordNotFound = apperr.RecordNotFound("Record not found with specified criteria")

// # Service Layer

// Service orchestrates business logic for user accounts.
//
// It keeps profile updates, password changes and the user cascade behind one
// API so the HTTP layer never reaches into auth or content directly.
type Service struct {
	repository  Repository
	credentials Credentials
	documents   DocumentCascade
	clock       clockwork.Clock
	logger      *slog.Logger
}

// Option customizes a [Service].
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(clock clockwork.Clock) Option {
	return func(service *Service) { service.clock = clock }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(service *Service) { service.logger = logger }
}

// NewService constructs a new [Service] with its collaborators.
func NewService(repository Repository, credentials Credentials, documents DocumentCascade, options ...Option) *Service {
	service := &Service{
		repository:  repository,
		credentials: credentials,
		documents:   documents,
		clock:       clockwork.NewRealClock(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(service)
	}
	return service
}

// # Self Service

/*
Me retrieves the full private identity of the caller.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) Me(context context.Context, userID string) (*auth.User, error) {
	user, err := service.repository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_me_failed: %w", err)
	}
	return user, nil
}

// ProfileInput is the self-editable subset of an identity.
type ProfileInput struct {
	Name    *string
	Email   *string
	Profile map[string]any
}

/*
UpdateProfile applies the caller's own changes.

Description: Only the name, the email and the free-form profile can be
changed here; the profile is merged key by key.

Returns:
  - *auth.User: The updated user profile
  - error: ValidationError, Duplicate or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input ProfileInput) (*auth.User, error) {
	validator := &validate.Validator{}
	if input.Name != nil {
		validator.MaxLen(auth.FieldName, *input.Name, 100)
	}
	if input.Email != nil {
		validator.Required(auth.FieldEmail, *input.Email).Email(auth.FieldEmail, *input.Email)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	changes := Changes{Name: input.Name, Email: input.Email, Profile: input.Profile}
	if changes.Empty() {
		return service.Me(context, userID)
	}

	user, err := service.repository.Update(context, userID, changes, pointer.To(userID), service.clock.Now())
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "account_profile_updated", slog.String("user_id", userID))
	return user, nil
}

/*
ChangePassword validates the request and delegates to the credential owner.

Returns:
  - error: BAD_REQUEST for missing parameters, ValidationError for a short
    password, InvalidCredentials for a wrong old password
*/
func (service *Service) ChangePassword(context context.Context, userID, currentToken, oldPassword, newPassword string) error {
	validator := &validate.Validator{}
	validator.Required(auth.FieldOldPassword, oldPassword).Required(auth.FieldNewPassword, newPassword)
	if err := validator.Insufficient(); err != nil {
		return err
	}

	validator.MinLen(auth.FieldNewPassword, newPassword, auth.MinPasswordLength)
	if err := validator.Err(); err != nil {
		return err
	}

	return service.credentials.ChangePassword(context, userID, currentToken, oldPassword, newPassword)
}

// # User Collection

// ListInput carries the filter and options of a list request.
type ListInput struct {
	Filter      Filter
	Page        pagination.Params
	Paginate    bool
	IsCountOnly bool
}

// ListResult is either a page of identities or, for count-only requests, a total.
type ListResult struct {
	Users []auth.User
	Meta  pagination.Meta
	Total int
}

// List returns one page of identities. An empty result is RECORD_NOT_FOUND.
func (service *Service) List(context context.Context, input ListInput) (*ListResult, error) {
	total, err := service.repository.Count(context, input.Filter)
	if err != nil {
		return nil, err
	}
	if input.IsCountOnly {
		return &ListResult{Total: total}, nil
	}
	if total == 0 {
		return nil, ErrRecordNotFound
	}

	page := pagination.New(input.Page.Page, input.Page.Limit)
	users, err := service.repository.List(context, ListQuery{Filter: input.Filter, Page: page, Paginate: input.Paginate})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrRecordNotFound
	}

	if !input.Paginate {
		page = pagination.Params{Page: 1, Limit: total}
	}
	return &ListResult{Users: users, Meta: pagination.NewMeta(page, total), Total: total}, nil
}

// Count returns the number of live identities matching filter.
func (service *Service) Count(context context.Context, filter Filter) (int, error) {
	return service.repository.Count(context, filter)
}

// Get returns one live identity.
func (service *Service) Get(context context.Context, id string) (*auth.User, error) {
	return service.repository.FindByID(context, id)
}

/*
Update changes an identity on behalf of an administrator.

Description: A full update replaces the profile, a partial one merges it.
Deactivating an identity also revokes its credentials.
*/
func (service *Service) Update(context context.Context, id string, changes Changes, partial bool, actor string) (*auth.User, error) {
	validator := &validate.Validator{}
	if changes.Username != nil {
		validator.Required(auth.FieldUsername, *changes.Username).MaxLen(auth.FieldUsername, *changes.Username, 100)
	}
	if changes.Email != nil {
		validator.Required(auth.FieldEmail, *changes.Email).Email(auth.FieldEmail, *changes.Email)
	}
	if changes.UserType != nil && !changes.UserType.Valid() {
		validator.Custom(auth.FieldUserType, true, "Unknown user type")
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	changes.ReplaceProfile = !partial
	if !partial && changes.Profile == nil {
		changes.Profile = map[string]any{}
	}

	user, err := service.repository.Update(context, id, changes, actorRef(actor), service.clock.Now())
	if err != nil {
		return nil, err
	}

	if changes.IsActive != nil && !*changes.IsActive {
		if err := service.credentials.RevokeCredentials(context, id); err != nil {
			return nil, err
		}
	}

	service.logger.InfoContext(context, "account_user_updated",
		slog.String("user_id", id),
		slog.String("actor", actor),
	)
	return user, nil
}

// # Deletion

// SoftDelete flags identities as deleted and cascades to what they own.
func (service *Service) SoftDelete(context context.Context, ids []string, actor string, warning bool) (*content.DeleteResult, error) {
	return service.remove(context, ids, actor, warning, false)
}

// Delete physically removes identities and cascades to what they own.
func (service *Service) Delete(context context.Context, ids []string, actor string, warning bool) (*content.DeleteResult, error) {
	return service.remove(context, ids, actor, warning, true)
}

/*
remove runs the user cascade.

Description: The identities added by a removed user follow it, level by
level. Every removed identity loses its issued tokens and refresh sessions,
then the document cascade runs for the whole set. With warning set nothing
changes and the result only counts what would be affected.
*/
func (service *Service) remove(context context.Context, ids []string, actor string, warning, hard bool) (*content.DeleteResult, error) {
	ids = slice.Filter(ids, func(id string) bool { return id != "" })
	if len(ids) == 0 {
		return nil, apperr.BadRequest("Insufficient request parameters! ids is required.")
	}

	roots, err := service.repository.FindIDs(context, ids)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, ErrRecordNotFound
	}

	affected, err := service.collectAdded(context, roots)
	if err != nil {
		return nil, err
	}
	everyone := append(append([]string{}, roots...), affected...)

	result := &content.DeleteResult{Deleted: len(roots), Dependents: content.Counts{}, Warning: warning}
	if len(affected) > 0 {
		result.Dependents[DependentUsers] = len(affected)
	}

	if !warning {
		if hard {
			_, err = service.repository.Delete(context, everyone)
		} else {
			_, err = service.repository.SoftDelete(context, everyone, actorRef(actor), service.clock.Now())
		}
		if err != nil {
			return nil, err
		}

		for _, id := range everyone {
			if err := service.credentials.RevokeCredentials(context, id); err != nil {
				return nil, err
			}
		}
	}

	documents, err := service.documents.CascadeUsers(context, everyone, actor, warning, hard)
	if err != nil {
		return nil, fmt.Errorf("account_service_cascade_failed: %w", err)
	}
	for kind, count := range documents {
		result.Dependents[kind] += count
	}

	if !warning {
		service.logger.WarnContext(context, "account_users_deleted",
			slog.Bool("hard", hard),
			slog.Int("deleted", result.Deleted),
			slog.Int("dependents", result.Dependents.Total()),
			slog.String("actor", actor),
		)
	}
	return result, nil
}

// collectAdded walks addedBy links breadth first and returns the identities
// reachable from roots, roots excluded.
func (service *Service) collectAdded(context context.Context, roots []string) ([]string, error) {
	seen := make(map[string]bool, len(roots))
	for _, id := range roots {
		seen[id] = true
	}

	var collected []string
	frontier := roots
	for len(frontier) > 0 {
		added, err := service.repository.FindAddedBy(context, frontier)
		if err != nil {
			return nil, err
		}

		frontier = slice.Filter(added, func(id string) bool {
			if seen[id] {
				return false
			}
			seen[id] = true
			return true
		})
		collected = append(collected, frontier...)
	}
	return collected, nil
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return pointer.To(actor)
}
