package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a user's stored OAuth grant for one provider. Unique per
// (UserID, Provider); the refresher mutates the token fields in place and
// never touches the identity fields.
type Credential struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Provider          string
	ProviderUserID    string
	AccessToken       string
	AccessTokenExpiry time.Time
	RefreshToken      string
	// Timezone is the IANA zone used to resolve the provider's local-clock
	// sample times for this user. Empty means the service default applies.
	Timezone string
}

// ProviderToken is the triple returned by a provider's token-refresh
// endpoint, plus the provider-side user id some providers echo back.
type ProviderToken struct {
	AccessToken    string
	ExpiresIn      int64
	RefreshToken   string
	ProviderUserID string
}
