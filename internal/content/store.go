// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"context"
	"time"

	"github.com/taibuivan/toeic/pkg/pagination"
)

// # Query Types

// Selector matches documents whose Field holds one of Values.
//
// Field is either [FieldID], one of the audit fields ([FieldAddedBy],
// [FieldUpdatedBy]) or a top-level key of the payload.
type Selector struct {
	Field  string
	Values []string
}

// ByID selects documents by primary key.
func ByID(ids ...string) Selector {
	return Selector{Field: FieldID, Values: ids}
}

// SortField orders a listing. Field follows the same rules as [Selector].
type SortField struct {
	Field      string
	Descending bool
}

// ListQuery is a filtered, sorted page of one kind.
type ListQuery struct {
	// Filter is matched by JSON containment against the payload.
	Filter   map[string]any
	Sort     []SortField
	Page     pagination.Params
	Paginate bool

	// IncludeDeleted also returns soft-deleted documents.
	IncludeDeleted bool
}

// # Data Access

// Repository defines the persistence contract for documents.
//
// Listing, counting and id lookups skip soft-deleted rows unless asked not to.
type Repository interface {

	/*
		WithinTx runs fn against a repository bound to one transaction.

		Returns:
		  - error: fn's error (after rollback) or commit failures
	*/
	WithinTx(context context.Context, fn func(Repository) error) error

	Create(context context.Context, documents ...*Document) error

	// FindByID returns apperr.NotFound for unknown or soft-deleted ids.
	FindByID(context context.Context, kind Kind, id string) (*Document, error)

	List(context context.Context, kind Kind, query ListQuery) ([]Document, error)

	Count(context context.Context, kind Kind, filter map[string]any, includeDeleted bool) (int, error)

	/*
		Update writes data into a live document.

		Description: replace swaps the whole payload; otherwise data is merged
		into the stored payload key by key.

		Returns:
		  - *Document: The stored document after the change
		  - error: apperr.NotFound when no live document matched
	*/
	Update(context context.Context, kind Kind, id string, data map[string]any, isActive *bool, replace bool, actor *string, now time.Time) (*Document, error)

	// UpdateMany merges patch into every live document matching filter.
	UpdateMany(context context.Context, kind Kind, filter map[string]any, patch map[string]any, actor *string, now time.Time) (int, error)

	// FindIDs returns the ids of live documents matched by selector.
	FindIDs(context context.Context, kind Kind, selector Selector) ([]string, error)

	// SoftDelete flags live matches as deleted and inactive, returning their ids.
	SoftDelete(context context.Context, kind Kind, selector Selector, actor *string, now time.Time) ([]string, error)

	// Delete physically removes matches (live or not), returning their ids.
	Delete(context context.Context, kind Kind, selector Selector) ([]string, error)
}
