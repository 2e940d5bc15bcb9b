// Package credential supplies currently-valid provider access tokens,
// refreshing and persisting them on demand.
package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jchen1/qs/internal/domain"
)

// Store captures the credential persistence operations the refresher needs.
type Store interface {
	Find(ctx context.Context, userID uuid.UUID, provider string) (*domain.Credential, error)
	Upsert(ctx context.Context, cred domain.Credential) (*domain.Credential, error)
}

// TokenSource exchanges a refresh token at one provider's token endpoint.
type TokenSource interface {
	Refresh(ctx context.Context, refreshToken string) (domain.ProviderToken, error)
}

// Refresher resolves (user, provider) to a usable access token. Tokens are
// refreshed on every use: providers may invalidate long-lived tokens that
// sit unused, so serving the stored one is not safe.
type Refresher struct {
	store   Store
	sources map[string]TokenSource
}

// NewRefresher constructs a Refresher over the given store and per-provider
// token sources.
func NewRefresher(store Store, sources map[string]TokenSource) *Refresher {
	return &Refresher{store: store, sources: sources}
}

// Access returns a freshly refreshed credential for (userID, provider). A
// missing credential surfaces domain.ErrNoCredential; a rejected or failed
// refresh call surfaces as a transient error.
func (r *Refresher) Access(ctx context.Context, userID uuid.UUID, provider string) (*domain.Credential, error) {
	source, ok := r.sources[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}

	cred, err := r.store.Find(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	token, err := source.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh %s token for user %s: %w", provider, userID, err)
	}

	cred.AccessToken = token.AccessToken
	cred.AccessTokenExpiry = time.Now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second)
	// An empty refresh token in the response means the provider kept the
	// previous one valid.
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	if token.ProviderUserID != "" {
		cred.ProviderUserID = token.ProviderUserID
	}

	updated, err := r.store.Upsert(ctx, *cred)
	if err != nil {
		return nil, fmt.Errorf("persist refreshed %s token for user %s: %w", provider, userID, err)
	}
	return updated, nil
}
