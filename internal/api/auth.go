package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles and the permissions they grant.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"

	PermissionRead  = "read"
	PermissionClean = "clean"
)

var rolePermissions = map[string][]string{
	RoleViewer:   {PermissionRead},
	RoleOperator: {PermissionRead, PermissionClean},
}

// HasPermission reports whether any of roles grants perm.
func HasPermission(roles []string, perm string) bool {
	for _, r := range roles {
		for _, p := range rolePermissions[r] {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// Claims is the token payload.
type Claims struct {
	Subject string   `json:"sub_name"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Generate signs a token for subject valid for ttl.
func (m *TokenManager) Generate(subject string, roles []string, ttl time.Duration) (string, error) {
	for _, r := range roles {
		if _, ok := rolePermissions[r]; !ok {
			return "", fmt.Errorf("unknown role %q", r)
		}
	}
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "mobile-clean",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate parses tokenStr and checks its signature and expiry.
func (m *TokenManager) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type claimsKey struct{}

// GetClaims returns the claims stored by the auth middleware.
func GetClaims(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// authMiddleware rejects requests without a valid bearer token. The
// WebSocket route also accepts the token as ?token= since browsers cannot
// set headers on upgrade requests.
func authMiddleware(m *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := r.URL.Query().Get("token")
			if h := r.Header.Get("Authorization"); h != "" {
				parts := strings.SplitN(h, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					respondError(w, "invalid authorization format", http.StatusUnauthorized)
					return
				}
				tokenStr = parts[1]
			}
			if tokenStr == "" {
				respondError(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := m.Validate(tokenStr)
			if err != nil {
				respondError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// require wraps h with a permission check. Without auth every request is
// allowed.
func (s *Server) require(perm string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.tokens != nil {
			claims, ok := GetClaims(r.Context())
			if !ok || !HasPermission(claims.Roles, perm) {
				respondError(w, "insufficient permissions", http.StatusForbidden)
				return
			}
		}
		h(w, r)
	}
}
