package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"
const testIssuer = "qs.identity"

func testConfig() Config {
	return Config{Secret: testSecret, Issuer: testIssuer}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "8f3f9a1e-0000-4000-8000-000000000001",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{"ingest:write", "profile:read"},
	})

	claims, err := Parse(token, testConfig())
	require.NoError(t, err)
	require.Equal(t, "8f3f9a1e-0000-4000-8000-000000000001", claims.Subject)
	require.True(t, claims.HasScope(ScopeIngestWrite))
	require.False(t, claims.HasScope("admin"))
}

func TestParseSpaceSeparatedScopes(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "ingest:write profile:read",
	})

	claims, err := Parse(token, testConfig())
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeIngestWrite))
	require.True(t, claims.HasScope("profile:read"))
}

func TestParseRejections(t *testing.T) {
	expired := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongIssuer := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noExpiry := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
	})

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong issuer", wrongIssuer},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.token, testConfig())
			require.Error(t, err)
		})
	}
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeIngestWrite},
	})

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	mw := NewMiddleware(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.Subject)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	mw := NewMiddleware(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareSkipper(t *testing.T) {
	skipper := func(r *http.Request) bool { return r.URL.Path == "/healthz" }
	mw := NewMiddleware(testConfig(), skipper)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
