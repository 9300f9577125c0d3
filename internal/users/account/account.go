// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles user management on top of the identities owned by auth.

It provides the self-service profile routes (me, update-profile,
change-password) and the administrative user collection (list, count,
update, soft-delete, delete) shared by the admin, client and device platforms.

# Architecture

  - Domain: This package depends on the auth package for the User entity.
  - Cascade: Removing a user revokes its credentials, removes the identities it
    added and hands the user ids to the document cascade.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/auth"
	"github.com/taibuivan/toeic/pkg/pagination"
)

// # Query Types

// Filter narrows the user collection. Nil fields match everything.
type Filter struct {
	Username *string
	Email    *string
	UserType *sec.UserType
	IsActive *bool
}

// ListQuery is a filtered page of identities.
type ListQuery struct {
	Filter   Filter
	Page     pagination.Params
	Paginate bool
}

// Changes lists the columns an update may touch. Nil fields are left alone.
type Changes struct {
	Username *string
	Email    *string
	Name     *string
	UserType *sec.UserType
	IsActive *bool

	// Profile is merged key by key, or replaces the stored profile when
	// ReplaceProfile is set.
	Profile        map[string]any
	ReplaceProfile bool
}

// Empty reports whether nothing would change.
func (changes Changes) Empty() bool {
	return changes.Username == nil && changes.Email == nil && changes.Name == nil &&
		changes.UserType == nil && changes.IsActive == nil &&
		changes.Profile == nil && !changes.ReplaceProfile
}

// DependentUsers keys the identities removed because a removed user added them.
const DependentUsers content.Kind = "user"

// # Repository Contracts

// Repository defines the persistence contract for the user collection.
//
// Every read skips identities flagged isDeleted.
type Repository interface {

	/*
		FindByID retrieves a live identity.

		Returns:
		  - *auth.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	List(context context.Context, query ListQuery) ([]auth.User, error)

	Count(context context.Context, filter Filter) (int, error)

	/*
		Update applies changes to a live identity.

		Returns:
		  - *auth.User: The stored identity after the change
		  - error: apperr.NotFound, apperr.Duplicate on username/email conflicts
	*/
	Update(context context.Context, id string, changes Changes, actor *string, now time.Time) (*auth.User, error)

	// FindIDs returns the subset of ids that are live.
	FindIDs(context context.Context, ids []string) ([]string, error)

	// FindAddedBy returns the live identities whose addedBy is one of userIDs.
	FindAddedBy(context context.Context, userIDs []string) ([]string, error)

	// SoftDelete flags live identities as deleted and inactive, returning their ids.
	SoftDelete(context context.Context, ids []string, actor *string, now time.Time) ([]string, error)

	// Delete physically removes identities (live or not), returning their ids.
	Delete(context context.Context, ids []string) ([]string, error)
}

// # Collaborators

// Credentials is the part of the auth service account management relies on.
type Credentials interface {
	ChangePassword(context context.Context, userID, currentToken, oldPassword, newPassword string) error
	RevokeCredentials(context context.Context, userID string) error
}

// DocumentCascade removes (or counts) the documents attached to users.
type DocumentCascade interface {
	CascadeUsers(context context.Context, userIDs []string, actor string, warning, hard bool) (content.Counts, error)
}
