// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec holds the security primitives of the API: RS256 access tokens
// bound to a platform, bcrypt password hashes, random reset codes and token
// digests, plus the UserType and Platform enums carried in the claims.
package sec

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/toeic/pkg/uuid"
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Platform scope
//
// The Platform claim pins the token to the namespace it was issued for. A
// client token presented on an admin route fails verification even though
// its signature is valid.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string   `json:"uid"`
	Username string   `json:"unm"`
	UserType UserType `json:"typ"`
	Platform Platform `json:"plt"`
}

// IssuedAccessToken is a freshly signed token together with its claims.
type IssuedAccessToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenService handles generation and verification of JWT tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenService loads a PEM key pair from disk.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKey, err := readPEM(privateKeyPath, jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, err
	}
	publicKey, err := readPEM(publicKeyPath, jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, err
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, fmt.Errorf("sec: %s is not the public half of %s", publicKeyPath, privateKeyPath)
	}

	return &TokenService{privateKey: privateKey, publicKey: publicKey, issuer: issuer}, nil
}

func readPEM[K any](path string, parse func([]byte) (K, error)) (K, error) {
	var zero K
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("sec: failed to read key %s: %w", path, err)
	}
	key, err := parse(data)
	if err != nil {
		return zero, fmt.Errorf("sec: failed to parse key %s: %w", path, err)
	}
	return key, nil
}

// NewTokenServiceFromKey builds a TokenService around an in-memory key pair.
func NewTokenServiceFromKey(privateKey *rsa.PrivateKey, issuer string) *TokenService {
	return &TokenService{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		issuer:     issuer,
	}
}

// GenerateAccessToken creates a new platform-scoped JWT access token.
func (service *TokenService) GenerateAccessToken(userID, username string, userType UserType, platform Platform, timeToLive time.Duration) (*IssuedAccessToken, error) {
	currentTime := time.Now()
	tokenID := uuid.New()
	expiresAt := currentTime.Add(timeToLive)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			Issuer:    service.issuer,
			Audience:  jwt.ClaimStrings{string(platform)},
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Username: username,
		UserType: userType,
		Platform: platform,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return &IssuedAccessToken{Token: signedToken, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// VerifyToken checks the RS256 signature, issuer and expiry of token.
//
// Platform matching and revocation are the caller's concern; see the auth
// package's Service.Authenticate.
func (service *TokenService) VerifyToken(token string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return service.publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	if !claims.Platform.Valid() {
		return nil, fmt.Errorf("sec: token carries unknown platform %q", claims.Platform)
	}
	return claims, nil
}
