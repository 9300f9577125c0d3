// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/account"
	"github.com/taibuivan/toeic/internal/users/auth"
	"github.com/taibuivan/toeic/pkg/pagination"
	"github.com/taibuivan/toeic/pkg/pointer"
	"github.com/taibuivan/toeic/pkg/uuid"
)

type fixture struct {
	service     *account.Service
	users       *memoryUsers
	credentials *recordingCredentials
	cascade     *recordingCascade
	clock       *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:       newMemoryUsers(),
		credentials: &recordingCredentials{},
		cascade:     &recordingCascade{},
		clock:       clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.service = account.NewService(f.users, f.credentials, f.cascade, account.WithClock(f.clock))
	return f
}

// seed stores a live identity and returns its id.
func (f *fixture) seed(username string, userType sec.UserType, addedBy *string) string {
	id := uuid.New()
	f.users.put(auth.User{
		ID:        id,
		Username:  username,
		Email:     username + "@toeic.test",
		UserType:  userType,
		Profile:   map[string]any{"level": "B1"},
		IsActive:  true,
		AddedBy:   addedBy,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	})
	return id
}

/*
TestService_UpdateProfile merges the profile and validates the email.
*/
func TestService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	id := f.seed("karli87", sec.UserTypeUser, nil)
	f.seed("taken", sec.UserTypeUser, nil)

	user, err := f.service.UpdateProfile(t.Context(), id, account.ProfileInput{
		Name:    pointer.To("Karli"),
		Profile: map[string]any{"target": float64(850)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Karli", user.Name)
	assert.Equal(t, map[string]any{"level": "B1", "target": float64(850)}, user.Profile)
	require.NotNil(t, user.UpdatedBy)
	assert.Equal(t, id, *user.UpdatedBy)

	_, err = f.service.UpdateProfile(t.Context(), id, account.ProfileInput{Email: pointer.To("not-an-email")})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.service.UpdateProfile(t.Context(), id, account.ProfileInput{Email: pointer.To("taken@toeic.test")})
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))

	unchanged, err := f.service.UpdateProfile(t.Context(), id, account.ProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "Karli", unchanged.Name)
}

/*
TestService_ChangePassword validates before delegating to the credential owner.
*/
func TestService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	id := f.seed("karli87", sec.UserTypeUser, nil)

	err := f.service.ChangePassword(t.Context(), id, "tok", "", "Secret#456")
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, auth.FieldOldPassword)

	err = f.service.ChangePassword(t.Context(), id, "tok", "Secret#123", "123")
	appErr = apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.StatusValidation, appErr.Status)
	assert.Empty(t, f.credentials.changes)

	require.NoError(t, f.service.ChangePassword(t.Context(), id, "tok", "Secret#123", "Secret#456"))
	require.Len(t, f.credentials.changes, 1)
	assert.Equal(t, passwordChange{id, "tok", "Secret#123", "Secret#456"}, f.credentials.changes[0])

	f.credentials.err = apperr.InvalidCredentials("Incorrect old password")
	err = f.service.ChangePassword(t.Context(), id, "tok", "wrong1", "Secret#789")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredentials))
}

/*
TestService_List covers pagination, filters, count-only and the empty result.
*/
func TestService_List(t *testing.T) {
	f := newFixture(t)
	f.seed("root", sec.UserTypeAdmin, nil)
	for _, name := range []string{"ann", "bob", "cid"} {
		f.seed(name, sec.UserTypeUser, nil)
	}

	result, err := f.service.List(t.Context(), account.ListInput{
		Filter:   account.Filter{UserType: pointer.To(sec.UserTypeUser)},
		Page:     pagination.New(2, 2),
		Paginate: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, "cid", result.Users[0].Username)
	assert.Equal(t, 3, result.Meta.ItemCount)
	assert.True(t, result.Meta.HasPrevPage)

	_, err = f.service.List(t.Context(), account.ListInput{Filter: account.Filter{Username: pointer.To("nobody")}})
	assert.True(t, apperr.IsNotFound(err))

	counted, err := f.service.List(t.Context(), account.ListInput{
		Filter:      account.Filter{IsActive: pointer.To(true)},
		IsCountOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, counted.Total)
	assert.Nil(t, counted.Users)
}

/*
TestService_Update replaces or merges the profile and revokes on deactivation.
*/
func TestService_Update(t *testing.T) {
	f := newFixture(t)
	admin := f.seed("root", sec.UserTypeAdmin, nil)
	id := f.seed("karli87", sec.UserTypeUser, nil)

	merged, err := f.service.Update(t.Context(), id, account.Changes{Profile: map[string]any{"target": "900"}}, true, admin)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": "B1", "target": "900"}, merged.Profile)
	assert.Empty(t, f.credentials.revoked)

	replaced, err := f.service.Update(t.Context(), id, account.Changes{IsActive: pointer.To(false)}, false, admin)
	require.NoError(t, err)
	assert.Empty(t, replaced.Profile)
	assert.False(t, replaced.IsActive)
	assert.Equal(t, []string{id}, f.credentials.revoked)

	_, err = f.service.Update(t.Context(), id, account.Changes{UserType: pointer.To(sec.UserType(9))}, true, admin)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.service.Update(t.Context(), uuid.New(), account.Changes{Name: pointer.To("x")}, true, admin)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestService_SoftDelete_Cascade follows addedBy links, revokes credentials and
hands every removed id to the document cascade.
*/
func TestService_SoftDelete_Cascade(t *testing.T) {
	f := newFixture(t)
	admin := f.seed("root", sec.UserTypeAdmin, nil)
	instructor := f.seed("instructor", sec.UserTypeAdmin, &admin)
	student := f.seed("student", sec.UserTypeUser, &instructor)
	pupil := f.seed("pupil", sec.UserTypeUser, &student)
	other := f.seed("other", sec.UserTypeUser, nil)
	f.cascade.counts = content.Counts{content.KindResult: 3}

	preview, err := f.service.SoftDelete(t.Context(), []string{instructor}, admin, true)
	require.NoError(t, err)
	assert.True(t, preview.Warning)
	assert.Equal(t, 1, preview.Deleted)
	assert.Equal(t, content.Counts{account.DependentUsers: 2, content.KindResult: 3}, preview.Dependents)
	assert.Empty(t, f.credentials.revoked, "warning mode revokes nothing")

	user, _ := f.users.get(student)
	assert.False(t, user.IsDeleted)

	result, err := f.service.SoftDelete(t.Context(), []string{instructor}, admin, false)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Dependents.Total())
	assert.ElementsMatch(t, []string{instructor, student, pupil}, f.credentials.revoked)

	for _, id := range []string{instructor, student, pupil} {
		user, _ := f.users.get(id)
		assert.True(t, user.IsDeleted)
		require.NotNil(t, user.UpdatedBy)
		assert.Equal(t, admin, *user.UpdatedBy)
	}
	untouched, _ := f.users.get(other)
	assert.False(t, untouched.IsDeleted)

	require.Len(t, f.cascade.calls, 2)
	last := f.cascade.calls[1]
	assert.ElementsMatch(t, []string{instructor, student, pupil}, last.userIDs)
	assert.False(t, last.warning)
	assert.False(t, last.hard)

	_, err = f.service.SoftDelete(t.Context(), []string{instructor}, admin, false)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.service.SoftDelete(t.Context(), []string{""}, admin, false)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

/*
TestService_Delete removes the rows and runs the hard document cascade.
*/
func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	admin := f.seed("root", sec.UserTypeAdmin, nil)
	id := f.seed("karli87", sec.UserTypeUser, nil)

	result, err := f.service.Delete(t.Context(), []string{id}, admin, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	_, ok := f.users.get(id)
	assert.False(t, ok)
	assert.Equal(t, []string{id}, f.credentials.revoked)
	require.Len(t, f.cascade.calls, 1)
	assert.True(t, f.cascade.calls[0].hard)
}
