// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/notify"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/auth"
)

func init() {
	sec.PasswordCost = bcrypt.MinCost
}

// # In-memory Users

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*auth.User)}
}

func (repo *memoryUsers) clone(user *auth.User) *auth.User {
	copied := *user
	return &copied
}

func (repo *memoryUsers) find(match func(*auth.User) bool) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if !user.IsDeleted && match(user) {
			return repo.clone(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUsers) get(id string) *auth.User {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.clone(repo.users[id])
}

func (repo *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	return repo.find(func(u *auth.User) bool { return u.ID == id })
}

func (repo *memoryUsers) FindByLogin(_ context.Context, handle string) (*auth.User, error) {
	return repo.find(func(u *auth.User) bool {
		return strings.EqualFold(u.Username, handle) || strings.EqualFold(u.Email, handle)
	})
}

func (repo *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return repo.find(func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (repo *memoryUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return repo.find(func(u *auth.User) bool { return strings.EqualFold(u.Username, username) })
}

func (repo *memoryUsers) FindByExternalID(_ context.Context, provider auth.Provider, subject string) (*auth.User, error) {
	return repo.find(func(u *auth.User) bool {
		var linked *string
		switch provider {
		case auth.ProviderGoogle:
			linked = u.GoogleID
		case auth.ProviderFacebook:
			linked = u.FacebookID
		case auth.ProviderDevice:
			linked = u.FirebaseUID
		}
		return linked != nil && *linked == subject
	})
}

func (repo *memoryUsers) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return apperr.Duplicate("username or email already exists")
		}
	}
	repo.users[user.ID] = repo.clone(user)
	return nil
}

func (repo *memoryUsers) RecordFailedLogin(_ context.Context, id string, now time.Time, window time.Duration) (int, *time.Time, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user := repo.users[id]
	user.LoginRetryLimit--
	if user.LoginRetryLimit <= 0 {
		user.LoginRetryLimit = 0
		if user.LoginReactiveTime == nil || !user.LoginReactiveTime.After(now) {
			end := now.Add(window)
			user.LoginReactiveTime = &end
		}
		end := *user.LoginReactiveTime
		return 0, &end, nil
	}
	return user.LoginRetryLimit, nil, nil
}

func (repo *memoryUsers) ResetLoginAttempts(_ context.Context, id string, limit int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[id].LoginRetryLimit = limit
	repo.users[id].LoginReactiveTime = nil
	return nil
}

func (repo *memoryUsers) SetResetCode(_ context.Context, id, code string, expiresAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[id].ResetCode = &code
	repo.users[id].ResetExpiresAt = &expiresAt
	return nil
}

func (repo *memoryUsers) FindByResetCode(_ context.Context, code string, now time.Time) (*auth.User, error) {
	return repo.find(func(u *auth.User) bool {
		return u.ResetCode != nil && *u.ResetCode == code && u.ResetExpiresAt.After(now)
	})
}

func (repo *memoryUsers) ConsumeResetCode(ctx context.Context, code, passwordHash string, now time.Time, limit int) (string, error) {
	user, err := repo.FindByResetCode(ctx, code, now)
	if err != nil {
		return "", err
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored := repo.users[user.ID]
	stored.PasswordHash = passwordHash
	stored.ResetCode = nil
	stored.ResetExpiresAt = nil
	stored.LoginRetryLimit = limit
	stored.LoginReactiveTime = nil
	return stored.ID, nil
}

func (repo *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[id].PasswordHash = passwordHash
	return nil
}

func (repo *memoryUsers) LinkExternalID(_ context.Context, id string, provider auth.Provider, subject string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	switch provider {
	case auth.ProviderGoogle:
		repo.users[id].GoogleID = &subject
	case auth.ProviderFacebook:
		repo.users[id].FacebookID = &subject
	case auth.ProviderDevice:
		repo.users[id].FirebaseUID = &subject
	}
	return nil
}

func (repo *memoryUsers) SetActive(_ context.Context, id string, active bool) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[id].IsActive = active
	return nil
}

// # In-memory Sessions

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
	clock    clockwork.Clock
}

func (repo *memorySessions) Create(_ context.Context, session *auth.Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *session
	repo.sessions[session.ID] = &copied
	return nil
}

func (repo *memorySessions) FindByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, session := range repo.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked && session.ExpiresAt.After(repo.clock.Now()) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (repo *memorySessions) Revoke(_ context.Context, sessionID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if session, ok := repo.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (repo *memorySessions) RevokeAll(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, session := range repo.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

// # Notifier

type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (sender *recordingSender) Send(_ context.Context, message notify.Message) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.messages = append(sender.messages, message)
	return sender.err
}

func (sender *recordingSender) last() notify.Message {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return sender.messages[len(sender.messages)-1]
}

// # Federated

type stubVerifier struct {
	provider auth.Provider
	identity map[string]*auth.ExternalIdentity
}

func (verifier stubVerifier) Provider() auth.Provider { return verifier.provider }

func (verifier stubVerifier) Verify(_ context.Context, credential string) (*auth.ExternalIdentity, error) {
	identity, ok := verifier.identity[credential]
	if !ok {
		return nil, apperr.InvalidToken("Invalid federated credential")
	}
	copied := *identity
	return &copied, nil
}

// # Fixture

type fixture struct {
	service  *auth.Service
	users    *memoryUsers
	sessions *memorySessions
	redis    *miniredis.Miniredis
	tokens   *sec.TokenService
	clock    *clockwork.FakeClock
	mailer   *recordingSender
}

func newFixture(t *testing.T, options ...auth.Option) *fixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Now())
	f := &fixture{
		users:    newMemoryUsers(),
		sessions: &memorySessions{sessions: make(map[string]*auth.Session), clock: clock},
		redis:    server,
		tokens:   sec.NewTokenServiceFromKey(key, "toeic.test"),
		clock:    clock,
		mailer:   &recordingSender{},
	}

	options = append([]auth.Option{auth.WithClock(clock), auth.WithNotifier(f.mailer)}, options...)
	f.service = auth.NewService(
		f.users,
		f.sessions,
		auth.NewIssuedTokenRepository(client),
		f.tokens,
		auth.Config{ClientURL: "https://app.toeic.test/"},
		options...,
	)
	return f
}

// register enrolls a learner (or admin on the admin platform) with a known password.
func (f *fixture) register(t *testing.T, platform sec.Platform, username, email string) *auth.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), platform, auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: "Secret#123",
	})
	require.NoError(t, err)
	return user
}
