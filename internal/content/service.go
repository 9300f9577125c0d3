// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/validate"
	"github.com/taibuivan/toeic/pkg/pagination"
	"github.com/taibuivan/toeic/pkg/pointer"
	"github.com/taibuivan/toeic/pkg/slice"
	"github.com/taibuivan/toeic/pkg/uuid"
)

// ErrRecordNotFound is returned by list, update and delete when nothing matched.
var ErrRecordNotFound = apperr.RecordNotFound("Record not found with specified criteria")

// # Service Layer

// Service implements the generic document use cases.
type Service struct {
	repository Repository
	clock      clockwork.Clock
	logger     *slog.Logger
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

// NewService constructs a new [Service].
func NewService(repository Repository, options ...Option) *Service {
	service := &Service{
		repository: repository,
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(service)
	}
	return service
}

// # Writes

/*
Create validates and stores one document.

Parameters:
  - context: context.Context
  - kind: Kind
  - payload: map[string]any (envelope keys are ignored except isActive)
  - actor: string (caller id, empty for system writes)

Returns:
  - *Document: Stored document
  - error: ValidationError or storage failures
*/
func (service *Service) Create(context context.Context, kind Kind, payload map[string]any, actor string) (*Document, error) {
	documents, err := service.CreateMany(context, kind, []map[string]any{payload}, actor)
	if err != nil {
		return nil, err
	}
	return &documents[0], nil
}

// CreateMany validates every payload first and then stores them in one batch.
func (service *Service) CreateMany(context context.Context, kind Kind, payloads []map[string]any, actor string) ([]Document, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, apperr.BadRequest("Insufficient request parameters! data is required.")
	}

	now := service.clock.Now()
	documents := make([]*Document, 0, len(payloads))
	for index, payload := range payloads {
		data, isActive := splitPayload(payload)
		if err := validatePayload(spec, data, true, index, len(payloads) > 1); err != nil {
			return nil, err
		}

		documents = append(documents, &Document{
			ID:        uuid.New(),
			Kind:      kind,
			Data:      data,
			IsActive:  pointer.Fallback(isActive, true),
			AddedBy:   actorRef(actor),
			UpdatedBy: actorRef(actor),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := service.repository.Create(context, documents...); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "content_documents_created",
		slog.String("kind", string(kind)),
		slog.Int("count", len(documents)),
	)
	return slice.Map(documents, func(document *Document) Document { return *document }), nil
}

/*
Update writes a payload into one live document.

Description: A full update replaces the payload and re-checks required keys.
A partial update merges the given keys only.
*/
func (service *Service) Update(context context.Context, kind Kind, id string, payload map[string]any, partial bool, actor string) (*Document, error) {
	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}

	data, isActive := splitPayload(payload)
	if err := validatePayload(spec, data, !partial, 0, false); err != nil {
		return nil, err
	}

	return service.repository.Update(context, kind, id, data, isActive, !partial, actorRef(actor), service.clock.Now())
}

// UpdateBulk merges patch into every live document matching filter.
func (service *Service) UpdateBulk(context context.Context, kind Kind, filter, patch map[string]any, actor string) (int, error) {
	spec, err := specFor(kind)
	if err != nil {
		return 0, err
	}

	data, _ := splitPayload(patch)
	if len(data) == 0 {
		return 0, apperr.BadRequest("Insufficient request parameters! data is required.")
	}
	if err := validatePayload(spec, data, false, 0, false); err != nil {
		return 0, err
	}

	return service.repository.UpdateMany(context, kind, filter, data, actorRef(actor), service.clock.Now())
}

// # Reads

// ListInput carries the filter and options of a list request.
type ListInput struct {
	Filter      map[string]any
	Sort        []SortField
	Page        pagination.Params
	Paginate    bool
	IsCountOnly bool
}

// ListResult is either a page of documents or, for count-only requests, a total.
type ListResult struct {
	Documents []Document
	Meta      pagination.Meta
	Total     int
}

/*
List returns one page of documents, or only their count.

Returns:
  - *ListResult: Documents and paginator, or Total when IsCountOnly
  - error: ErrRecordNotFound when nothing matched
*/
func (service *Service) List(context context.Context, kind Kind, input ListInput) (*ListResult, error) {
	if _, err := specFor(kind); err != nil {
		return nil, err
	}

	total, err := service.repository.Count(context, kind, input.Filter, false)
	if err != nil {
		return nil, err
	}
	if input.IsCountOnly {
		return &ListResult{Total: total}, nil
	}
	if total == 0 {
		return nil, ErrRecordNotFound
	}

	page := input.Page
	if page.Limit == 0 {
		page = pagination.New(page.Page, page.Limit)
	}

	documents, err := service.repository.List(context, kind, ListQuery{
		Filter:   input.Filter,
		Sort:     input.Sort,
		Page:     page,
		Paginate: input.Paginate,
	})
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return nil, ErrRecordNotFound
	}

	if !input.Paginate {
		page = pagination.Params{Page: 1, Limit: total}
	}
	return &ListResult{Documents: documents, Meta: pagination.NewMeta(page, total), Total: total}, nil
}

// Count returns the number of live documents matching filter.
func (service *Service) Count(context context.Context, kind Kind, filter map[string]any) (int, error) {
	if _, err := specFor(kind); err != nil {
		return 0, err
	}
	return service.repository.Count(context, kind, filter, false)
}

// Get returns one live document.
func (service *Service) Get(context context.Context, kind Kind, id string) (*Document, error) {
	if _, err := specFor(kind); err != nil {
		return nil, err
	}
	return service.repository.FindByID(context, kind, id)
}

// # Deletion

/*
SoftDelete flags documents and their dependents as deleted.

Description: The registry's dependents are walked breadth first inside one
transaction. With warning set nothing changes and the result only counts
what would be affected.

Returns:
  - *DeleteResult: Root and dependent counts
  - error: ErrRecordNotFound when no live root matched
*/
func (service *Service) SoftDelete(context context.Context, kind Kind, ids []string, actor string, warning bool) (*DeleteResult, error) {
	return service.remove(context, kind, ids, actor, warning, false)
}

// Delete physically removes documents and their dependents.
func (service *Service) Delete(context context.Context, kind Kind, ids []string, warning bool) (*DeleteResult, error) {
	return service.remove(context, kind, ids, "", warning, true)
}

func (service *Service) remove(context context.Context, kind Kind, ids []string, actor string, warning, hard bool) (*DeleteResult, error) {
	if _, err := specFor(kind); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.BadRequest("Insufficient request parameters! ids is required.")
	}

	result := &DeleteResult{Dependents: Counts{}, Warning: warning}
	err := service.repository.WithinTx(context, func(repository Repository) error {
		apply := service.applier(repository, actor, warning, hard)

		roots, err := apply(context, kind, ByID(ids...))
		if err != nil {
			return err
		}
		if len(roots) == 0 {
			return ErrRecordNotFound
		}
		result.Deleted = len(roots)

		seen := map[Kind]map[string]bool{kind: toSet(roots)}
		return service.cascade(context, apply, kind, roots, result.Dependents, seen)
	})
	if err != nil {
		return nil, err
	}

	if !warning {
		service.logger.InfoContext(context, "content_documents_deleted",
			slog.String("kind", string(kind)),
			slog.Bool("hard", hard),
			slog.Int("deleted", result.Deleted),
			slog.Int("dependents", result.Dependents.Total()),
		)
	}
	return result, nil
}

/*
CascadeUsers applies the user cascade for identities that are being removed.

Description: Every kind is matched by addedBy and updatedBy, user_role by
userId, and each affected document then runs its own cascade.

Returns:
  - Counts: Affected documents per kind
  - error: Storage failures
*/
func (service *Service) CascadeUsers(context context.Context, userIDs []string, actor string, warning, hard bool) (Counts, error) {
	counts := Counts{}
	if len(userIDs) == 0 {
		return counts, nil
	}

	err := service.repository.WithinTx(context, func(repository Repository) error {
		apply := service.applier(repository, actor, warning, hard)

		targets := make([]UserReference, 0, 2*len(registry)+len(userReferences))
		for _, kind := range Kinds() {
			targets = append(targets,
				UserReference{Kind: kind, Field: FieldAddedBy},
				UserReference{Kind: kind, Field: FieldUpdatedBy},
			)
		}
		targets = append(targets, userReferences...)

		seen := map[Kind]map[string]bool{}
		for _, target := range targets {
			affected, err := apply(context, target.Kind, Selector{Field: target.Field, Values: userIDs})
			if err != nil {
				return err
			}
			affected = unseen(seen, target.Kind, affected)
			if len(affected) == 0 {
				continue
			}
			counts[target.Kind] += len(affected)

			if err := service.cascade(context, apply, target.Kind, affected, counts, seen); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// applyFunc removes (or, in warning mode, only finds) the matches of selector.
type applyFunc func(context context.Context, kind Kind, selector Selector) ([]string, error)

func (service *Service) applier(repository Repository, actor string, warning, hard bool) applyFunc {
	now := service.clock.Now()
	switch {
	case warning:
		return repository.FindIDs
	case hard:
		return repository.Delete
	default:
		return func(context context.Context, kind Kind, selector Selector) ([]string, error) {
			return repository.SoftDelete(context, kind, selector, actorRef(actor), now)
		}
	}
}

// cascade walks the dependents of kind for the given parent ids. seen holds
// the ids already counted per kind and is updated in place.
func (service *Service) cascade(context context.Context, apply applyFunc, kind Kind, parents []string, counts Counts, seen map[Kind]map[string]bool) error {
	type level struct {
		kind Kind
		ids  []string
	}

	queue := []level{{kind: kind, ids: parents}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range registry[current.kind].Dependents {
			affected, err := apply(context, dependent.Kind, Selector{Field: dependent.Field, Values: current.ids})
			if err != nil {
				return fmt.Errorf("content_cascade_%s_failed: %w", dependent.Kind, err)
			}

			affected = unseen(seen, dependent.Kind, affected)
			if len(affected) == 0 {
				continue
			}
			counts[dependent.Kind] += len(affected)
			queue = append(queue, level{kind: dependent.Kind, ids: affected})
		}
	}
	return nil
}

// # Helpers

func specFor(kind Kind) (Spec, error) {
	spec, ok := registry[kind]
	if !ok {
		return Spec{}, apperr.NotFound(fmt.Sprintf("Collection %q", kind))
	}
	return spec, nil
}

// validatePayload checks required keys (when full) and reference formats.
func validatePayload(spec Spec, data map[string]any, full bool, index int, indexed bool) error {
	field := func(name string) string {
		if indexed {
			return fmt.Sprintf("data[%d].%s", index, name)
		}
		return name
	}

	validator := &validate.Validator{}
	if full {
		for _, key := range spec.Required {
			value, ok := data[key]
			text, isText := value.(string)
			switch {
			case !ok || value == nil:
				validator.Required(field(key), "")
			case isText:
				validator.Required(field(key), text)
			}
		}
	}

	for _, key := range spec.References {
		if text, ok := data[key].(string); ok && strings.TrimSpace(text) != "" {
			validator.UUID(field(key), text)
		}
	}
	return validator.Err()
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return pointer.To(actor)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// unseen drops ids already visited for kind and marks the rest.
func unseen(seen map[Kind]map[string]bool, kind Kind, ids []string) []string {
	if seen[kind] == nil {
		seen[kind] = map[string]bool{}
	}
	return slice.Filter(ids, func(id string) bool {
		if seen[kind][id] {
			return false
		}
		seen[kind][id] = true
		return true
	})
}
