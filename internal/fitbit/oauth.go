package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jchen1/qs/internal/domain"
)

// DefaultTokenURL is the production Fitbit OAuth token endpoint.
const DefaultTokenURL = "https://api.fitbit.com/oauth2/token"

// OAuthClient exchanges refresh tokens for new access tokens using the
// client-credentials basic-auth flow Fitbit requires.
type OAuthClient struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
}

// NewOAuthClient constructs an OAuthClient for the given token endpoint and
// application credentials.
func NewOAuthClient(tokenURL, clientID, clientSecret string) *OAuthClient {
	return &OAuthClient{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Refresh exchanges refreshToken for a fresh token triple.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (domain.ProviderToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.ProviderToken{}, err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ProviderToken{}, fmt.Errorf("fitbit token refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProviderToken{}, fmt.Errorf("fitbit token refresh: unexpected status %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ProviderToken{}, fmt.Errorf("decode fitbit token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return domain.ProviderToken{}, fmt.Errorf("fitbit token refresh: empty access token in response")
	}

	return domain.ProviderToken{
		AccessToken:    parsed.AccessToken,
		ExpiresIn:      parsed.ExpiresIn,
		RefreshToken:   parsed.RefreshToken,
		ProviderUserID: parsed.UserID,
	}, nil
}
