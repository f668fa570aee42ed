package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// accessTokenCookie is the cookie the Supabase browser client sets.
const accessTokenCookie = "sb-access-token"

type authClaimsKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// supabaseClaims is the access token payload issued by Supabase Auth.
type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var errTokenMissing = errors.New("authentication required")

// bearerToken returns the access token from the Authorization header, falling
// back to the Supabase session cookie.
func bearerToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", errors.New("malformed Authorization header")
		}
		return strings.TrimSpace(token), nil
	}
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errTokenMissing
}

// parseAccessToken verifies signature, expiry, audience and role.
func (h *Handler) parseAccessToken(raw string) (*AuthClaims, error) {
	claims := &supabaseClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(h.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	switch claims.Role {
	case "authenticated", "service_role":
	default:
		return nil, errors.New("role not permitted")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &AuthClaims{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// RequireAuth is chi middleware that validates the Supabase access token and
// injects AuthClaims into the request context. Returns 401 if the token is
// absent or invalid. With no secret configured every request passes as a
// local development user.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.JWTSecret == "" {
			ctx := context.WithValue(r.Context(), authClaimsKey{}, &AuthClaims{UserID: "local", Role: "authenticated"})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		raw, err := bearerToken(r)
		if err != nil {
			writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		claims, err := h.parseAccessToken(raw)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// me handles GET /api/auth/me and echoes the verified token identity.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	if claims == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	writeJSON(w, claims)
}
