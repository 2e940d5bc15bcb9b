// Package postgres provides pgx-backed persistence for measurements and
// provider credentials.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jchen1/qs/internal/domain"
)

const credentialColumns = `id, user_id, provider, provider_user_id, access_token, access_token_expiry, refresh_token, timezone`

// CredentialStore persists provider credentials, one row per
// (user_id, provider).
type CredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore constructs a CredentialStore.
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// Find loads the credential for (userID, provider). A missing row returns
// domain.ErrNoCredential.
func (s *CredentialStore) Find(ctx context.Context, userID uuid.UUID, provider string) (*domain.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE user_id=$1 AND provider=$2`

	row := s.pool.QueryRow(ctx, query, userID, provider)
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w for user %s provider %s", domain.ErrNoCredential, userID, provider)
		}
		return nil, err
	}
	return cred, nil
}

// Upsert writes the credential keyed on (user_id, provider), updating the
// token fields in place and never creating a second row for the pair. An
// empty refresh token keeps the stored one; identity and timezone columns
// are left untouched on update.
func (s *CredentialStore) Upsert(ctx context.Context, cred domain.Credential) (*domain.Credential, error) {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}

	const stmt = `INSERT INTO credentials (id, user_id, provider, provider_user_id, access_token, access_token_expiry, refresh_token, timezone)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (user_id, provider) DO UPDATE SET
            access_token = EXCLUDED.access_token,
            access_token_expiry = EXCLUDED.access_token_expiry,
            provider_user_id = EXCLUDED.provider_user_id,
            refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN credentials.refresh_token ELSE EXCLUDED.refresh_token END
        RETURNING ` + credentialColumns

	timezone := cred.Timezone
	if timezone == "" {
		timezone = "America/Los_Angeles"
	}

	row := s.pool.QueryRow(ctx, stmt,
		cred.ID,
		cred.UserID,
		cred.Provider,
		cred.ProviderUserID,
		cred.AccessToken,
		cred.AccessTokenExpiry,
		cred.RefreshToken,
		timezone,
	)
	return scanCredential(row)
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	if err := row.Scan(
		&cred.ID,
		&cred.UserID,
		&cred.Provider,
		&cred.ProviderUserID,
		&cred.AccessToken,
		&cred.AccessTokenExpiry,
		&cred.RefreshToken,
		&cred.Timezone,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}
