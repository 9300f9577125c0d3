// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/sec"
)

func newTokenService(t *testing.T, issuer string) *sec.TokenService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return sec.NewTokenServiceFromKey(key, issuer)
}

/*
TestTokenService_RoundTrip verifies that claims survive signing and verification.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTokenService(t, "toeic.test")

	issued, err := service.GenerateAccessToken("user-1", "Karli87", sec.UserTypeUser, sec.PlatformClient, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := service.VerifyToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, sec.UserTypeUser, claims.UserType)
	assert.Equal(t, sec.PlatformClient, claims.Platform)
	assert.Equal(t, issued.ID, claims.ID)
}

/*
TestTokenService_Rejects covers expired tokens, foreign keys and foreign issuers.
*/
func TestTokenService_Rejects(t *testing.T) {
	service := newTokenService(t, "toeic.test")

	expired, err := service.GenerateAccessToken("user-1", "Karli87", sec.UserTypeUser, sec.PlatformClient, -time.Minute)
	require.NoError(t, err)
	_, err = service.VerifyToken(expired.Token)
	assert.Error(t, err)

	other := newTokenService(t, "toeic.test")
	foreign, err := other.GenerateAccessToken("user-1", "Karli87", sec.UserTypeUser, sec.PlatformClient, time.Hour)
	require.NoError(t, err)
	_, err = service.VerifyToken(foreign.Token)
	assert.Error(t, err)

	_, err = service.VerifyToken("not-a-jwt")
	assert.Error(t, err)
}

/*
TestUserType_AllowedOn checks the login-access matrix.
*/
func TestUserType_AllowedOn(t *testing.T) {
	tests := []struct {
		name     string
		userType sec.UserType
		platform sec.Platform
		allowed  bool
	}{
		{"user_on_client", sec.UserTypeUser, sec.PlatformClient, true},
		{"user_on_device", sec.UserTypeUser, sec.PlatformDevice, true},
		{"user_on_admin", sec.UserTypeUser, sec.PlatformAdmin, false},
		{"admin_on_admin", sec.UserTypeAdmin, sec.PlatformAdmin, true},
		{"admin_on_client", sec.UserTypeAdmin, sec.PlatformClient, false},
		{"unknown_type", sec.UserType(9), sec.PlatformClient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.userType.AllowedOn(tt.platform))
		})
	}
}

/*
TestGenerateSecureToken verifies length and uniqueness of random codes.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
	assert.Equal(t, sec.HashToken(first), sec.HashToken(first))
	assert.NotEqual(t, first, sec.HashToken(first))
}

/*
TestPasswordHash verifies bcrypt round trips.
*/
func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("uwFZipwKZCwFBIc")
	require.NoError(t, err)

	assert.NotEqual(t, "uwFZipwKZCwFBIc", hash)
	assert.True(t, sec.CheckPasswordHash("uwFZipwKZCwFBIc", hash))
	assert.False(t, sec.CheckPasswordHash("wrong", hash))
	assert.False(t, sec.CheckPasswordHash("uwFZipwKZCwFBIc", ""))

	_, err = sec.HashPassword(strings.Repeat("a", 73))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
