// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/users/account"
	"github.com/taibuivan/toeic/internal/users/auth"
)

// # In-memory Users

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*auth.User)}
}

func (repo *memoryUsers) put(user auth.User) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[user.ID] = &user
}

func (repo *memoryUsers) get(id string) (auth.User, bool) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return auth.User{}, false
	}
	return *user, true
}

func (repo *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok || user.IsDeleted {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (repo *memoryUsers) live(filter account.Filter) []auth.User {
	var users []auth.User
	for _, user := range repo.users {
		if user.IsDeleted {
			continue
		}
		if filter.Username != nil && !strings.EqualFold(user.Username, *filter.Username) {
			continue
		}
		if filter.Email != nil && !strings.EqualFold(user.Email, *filter.Email) {
			continue
		}
		if filter.UserType != nil && user.UserType != *filter.UserType {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

func (repo *memoryUsers) List(_ context.Context, query account.ListQuery) ([]auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	users := repo.live(query.Filter)
	if query.Paginate {
		offset := query.Page.Offset()
		if offset >= len(users) {
			return nil, nil
		}
		users = users[offset:min(offset+query.Page.Limit, len(users))]
	}
	return users, nil
}

func (repo *memoryUsers) Count(_ context.Context, filter account.Filter) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.live(filter)), nil
}

func (repo *memoryUsers) Update(_ context.Context, id string, changes account.Changes, actor *string, now time.Time) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.users[id]
	if !ok || user.IsDeleted {
		return nil, account.ErrRecordNotFound
	}

	if changes.Email != nil {
		for _, other := range repo.users {
			if other.ID != id && strings.EqualFold(other.Email, *changes.Email) {
				return nil, apperr.Duplicate("Email already exists")
			}
		}
		user.Email = *changes.Email
	}
	if changes.Username != nil {
		user.Username = *changes.Username
	}
	if changes.Name != nil {
		user.Name = *changes.Name
	}
	if changes.UserType != nil {
		user.UserType = *changes.UserType
	}
	if changes.IsActive != nil {
		user.IsActive = *changes.IsActive
	}

	if changes.ReplaceProfile || changes.Profile != nil {
		profile := map[string]any{}
		if !changes.ReplaceProfile {
			for key, value := range user.Profile {
				profile[key] = value
			}
		}
		for key, value := range changes.Profile {
			profile[key] = value
		}
		user.Profile = profile
	}

	user.UpdatedBy = actor
	user.UpdatedAt = now
	copied := *user
	return &copied, nil
}

func (repo *memoryUsers) FindIDs(_ context.Context, ids []string) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var found []string
	for _, id := range ids {
		if user, ok := repo.users[id]; ok && !user.IsDeleted {
			found = append(found, id)
		}
	}
	return found, nil
}

func (repo *memoryUsers) FindAddedBy(_ context.Context, userIDs []string) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	parents := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		parents[id] = true
	}

	var found []string
	for _, user := range repo.users {
		if !user.IsDeleted && user.AddedBy != nil && parents[*user.AddedBy] {
			found = append(found, user.ID)
		}
	}
	sort.Strings(found)
	return found, nil
}

func (repo *memoryUsers) SoftDelete(_ context.Context, ids []string, actor *string, now time.Time) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var deleted []string
	for _, id := range ids {
		if user, ok := repo.users[id]; ok && !user.IsDeleted {
			user.IsDeleted = true
			user.IsActive = false
			user.UpdatedBy = actor
			user.UpdatedAt = now
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

func (repo *memoryUsers) Delete(_ context.Context, ids []string) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var deleted []string
	for _, id := range ids {
		if _, ok := repo.users[id]; ok {
			delete(repo.users, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// # Collaborators

type passwordChange struct {
	userID, token, oldPassword, newPassword string
}

type recordingCredentials struct {
	mu      sync.Mutex
	changes []passwordChange
	revoked []string
	err     error
}

func (credentials *recordingCredentials) ChangePassword(_ context.Context, userID, currentToken, oldPassword, newPassword string) error {
	credentials.mu.Lock()
	defer credentials.mu.Unlock()
	if credentials.err != nil {
		return credentials.err
	}
	credentials.changes = append(credentials.changes, passwordChange{userID, currentToken, oldPassword, newPassword})
	return nil
}

func (credentials *recordingCredentials) RevokeCredentials(_ context.Context, userID string) error {
	credentials.mu.Lock()
	defer credentials.mu.Unlock()
	credentials.revoked = append(credentials.revoked, userID)
	return nil
}

type cascadeCall struct {
	userIDs []string
	warning bool
	hard    bool
}

type recordingCascade struct {
	mu     sync.Mutex
	calls  []cascadeCall
	counts content.Counts
}

func (cascade *recordingCascade) CascadeUsers(_ context.Context, userIDs []string, _ string, warning, hard bool) (content.Counts, error) {
	cascade.mu.Lock()
	defer cascade.mu.Unlock()
	cascade.calls = append(cascade.calls, cascadeCall{userIDs: append([]string{}, userIDs...), warning: warning, hard: hard})

	counts := content.Counts{}
	for kind, count := range cascade.counts {
		counts[kind] = count
	}
	return counts, nil
}
