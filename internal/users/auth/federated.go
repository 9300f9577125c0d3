// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/taibuivan/toeic/internal/platform/apperr"
)

// # Federated Verifiers

const (
	// GoogleIssuer is the iss claim of Google Sign-In ID tokens.
	GoogleIssuer = "https://accounts.google.com"

	// GoogleJWKSURL publishes the keys Google signs ID tokens with.
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	// FirebaseIssuerPrefix is followed by the Firebase project id.
	FirebaseIssuerPrefix = "https://securetoken.google.com/"

	// FirebaseJWKSURL publishes the keys Firebase Auth signs ID tokens with.
	FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	// DefaultFacebookGraphURL is the Graph API root used to resolve access tokens.
	DefaultFacebookGraphURL = "https://graph.facebook.com"
)

// Verifier turns a provider credential into a verified [ExternalIdentity].
//
// Implementations return [apperr.InvalidToken] for rejected credentials and
// [apperr.UpstreamTimeout] when the provider does not answer within ctx.
type Verifier interface {
	Provider() Provider
	Verify(ctx context.Context, credential string) (*ExternalIdentity, error)
}

// upstreamError classifies a provider failure. Some providers flatten the
// context error into their message, so ctx itself is checked too.
func upstreamError(ctx context.Context, provider Provider, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.UpstreamTimeout(fmt.Sprintf("Identity provider %s", provider), err)
	}
	if apperr.IsAppError(err) {
		return err
	}
	invalid := apperr.InvalidToken("Invalid federated credential")
	invalid.Cause = err
	return invalid
}

// OIDCVerifier validates OpenID Connect ID tokens (Google Sign-In, Firebase Auth).
type OIDCVerifier struct {
	provider Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier wraps a configured go-oidc verifier.
func NewOIDCVerifier(provider Provider, verifier *oidc.IDTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{provider: provider, verifier: verifier}
}

// NewGoogleVerifier verifies Google ID tokens issued for clientID.
//
// An empty clientID disables the audience check.
func NewGoogleVerifier(ctx context.Context, clientID string) *OIDCVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, GoogleJWKSURL)
	verifier := oidc.NewVerifier(GoogleIssuer, keySet, &oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
	})
	return NewOIDCVerifier(ProviderGoogle, verifier)
}

// NewDeviceVerifier verifies Firebase Auth ID tokens minted for projectID.
func NewDeviceVerifier(ctx context.Context, projectID string) *OIDCVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, FirebaseJWKSURL)
	verifier := oidc.NewVerifier(FirebaseIssuerPrefix+projectID, keySet, &oidc.Config{
		ClientID:          projectID,
		SkipClientIDCheck: projectID == "",
	})
	return NewOIDCVerifier(ProviderDevice, verifier)
}

// Provider implements [Verifier].
func (verifier *OIDCVerifier) Provider() Provider {
	return verifier.provider
}

// Verify checks signature, issuer, audience and expiry, then extracts the profile claims.
func (verifier *OIDCVerifier) Verify(ctx context.Context, credential string) (*ExternalIdentity, error) {
	idToken, err := verifier.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, upstreamError(ctx, verifier.provider, err)
	}

	var claims struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Disabled bool   `json:"disabled"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, upstreamError(ctx, verifier.provider, err)
	}

	return &ExternalIdentity{
		Provider: verifier.provider,
		Subject:  idToken.Subject,
		Email:    strings.ToLower(claims.Email),
		Name:     claims.Name,
		Disabled: claims.Disabled,
	}, nil
}

// FacebookVerifier resolves a Facebook user access token through the Graph API.
type FacebookVerifier struct {
	graphURL string
}

// NewFacebookVerifier targets graphURL, falling back to [DefaultFacebookGraphURL].
func NewFacebookVerifier(graphURL string) *FacebookVerifier {
	if graphURL == "" {
		graphURL = DefaultFacebookGraphURL
	}
	return &FacebookVerifier{graphURL: strings.TrimSuffix(graphURL, "/")}
}

// Provider implements [Verifier].
func (verifier *FacebookVerifier) Provider() Provider {
	return ProviderFacebook
}

// Verify calls GET /me with the access token. Graph rejects invalid tokens with 4xx.
func (verifier *FacebookVerifier) Verify(ctx context.Context, credential string) (*ExternalIdentity, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, verifier.graphURL+"/me?fields=id,name,email", nil)
	if err != nil {
		return nil, fmt.Errorf("facebook_verifier_request_failed: %w", err)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, upstreamError(ctx, ProviderFacebook, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest && response.StatusCode < http.StatusInternalServerError {
		return nil, apperr.InvalidToken("Invalid federated credential")
	}
	if response.StatusCode != http.StatusOK {
		return nil, apperr.UpstreamTimeout("Identity provider facebook",
			fmt.Errorf("graph api answered %d", response.StatusCode))
	}

	var profile struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(response.Body).Decode(&profile); err != nil {
		return nil, upstreamError(ctx, ProviderFacebook, err)
	}
	if profile.ID == "" {
		return nil, apperr.InvalidToken("Invalid federated credential")
	}

	return &ExternalIdentity{
		Provider: ProviderFacebook,
		Subject:  profile.ID,
		Email:    strings.ToLower(profile.Email),
		Name:     profile.Name,
	}, nil
}
