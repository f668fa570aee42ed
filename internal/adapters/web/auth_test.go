package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, mutate func(*supabaseClaims)) string {
	t.Helper()
	claims := &supabaseClaims{
		Email: "owner@himalayanflavours.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "6f1c2a7e-2b4d-4a8e-9d0a-3c5b7e9f1a2b",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(claims)
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuth(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{}, func(c *Config) { c.JWTSecret = testSecret })

	call := func(setup func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if setup != nil {
			setup(req)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}
	bearer := func(token string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}

	t.Run("valid bearer token", func(t *testing.T) {
		w := call(bearer(signToken(t, jwt.SigningMethodHS256, testSecret, nil)))
		require.Equal(t, http.StatusOK, w.Code)

		var got AuthClaims
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "6f1c2a7e-2b4d-4a8e-9d0a-3c5b7e9f1a2b", got.UserID)
		assert.Equal(t, "owner@himalayanflavours.com", got.Email)
		assert.Equal(t, "authenticated", got.Role)
	})

	t.Run("session cookie", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, testSecret, nil)
		w := call(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token}) })
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("service role", func(t *testing.T) {
		w := call(bearer(signToken(t, jwt.SigningMethodHS256, testSecret, func(c *supabaseClaims) { c.Role = "service_role" })))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	rejected := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no token", nil},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }},
		{"wrong secret", bearer(signToken(t, jwt.SigningMethodHS256, "another-secret", nil))},
		{"wrong algorithm", bearer(signToken(t, jwt.SigningMethodHS512, testSecret, nil))},
		{"expired", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, func(c *supabaseClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		}))},
		{"no expiry", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, func(c *supabaseClaims) { c.ExpiresAt = nil }))},
		{"wrong audience", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, func(c *supabaseClaims) {
			c.Audience = jwt.ClaimStrings{"other"}
		}))},
		{"anon role", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, func(c *supabaseClaims) { c.Role = "anon" }))},
		{"no subject", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, func(c *supabaseClaims) { c.Subject = "" }))},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			w := call(tt.setup)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)
		})
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{}, func(c *Config) { c.JWTSecret = testSecret })

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/health", "").Code)
	assert.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/api/emails", `{"email":"a@b.co"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/emails", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/inventory", "").Code)
}

func TestRequireAuthDisabledWithoutSecret(t *testing.T) {
	h, _ := newTestHandler(t, &mockService{})

	w := do(h, http.MethodGet, "/api/auth/me", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"local"`)
}
