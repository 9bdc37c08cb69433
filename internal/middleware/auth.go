package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
	AuthBearer AuthMode = "bearer"
	AuthJWT    AuthMode = "jwt"
)

type AuthConfig struct {
	Mode        AuthMode
	APIKey      string
	BearerToken string
	// JWTSecret verifies HS256 tokens in AuthJWT mode.
	JWTSecret string
	SkipPaths []string
}

func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	// normalize skip path set
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if cfg.Mode == AuthNone || cfg.Mode == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			switch cfg.Mode {
			case AuthAPIKey:
				// Header: X-API-Key: <key>
				if constantTimeEq(r.Header.Get("X-API-Key"), cfg.APIKey) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `ApiKey realm="todos", header="X-API-Key"`)

			case AuthBearer:
				if token, ok := bearerToken(r); ok && constantTimeEq(token, cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `Bearer realm="todos"`)

			case AuthJWT:
				if token, ok := bearerToken(r); ok && validJWT(token, cfg.JWTSecret) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `Bearer realm="todos", error="invalid_token"`)

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// bearerToken extracts <token> from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authz, "Bearer ")
	if token == authz {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func validJWT(raw, secret string) bool {
	if secret == "" {
		return false
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return err == nil && token.Valid
}

func constantTimeEq(a, b string) bool {
	if len(a) != len(b) || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func unauthorized(w http.ResponseWriter, challenge string) {
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}
