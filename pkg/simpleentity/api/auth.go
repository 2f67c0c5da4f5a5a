package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/chi-demo/middleware"
)

// APIKeyAuth accepts requests carrying one of the configured API keys.
// Keys maps a key name to the SHA-256 hex digest of the key.
func APIKeyAuth(keys map[string]string) (Middleware, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one API key is required")
	}
	mw, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{APIKeys: keys})
	if err != nil {
		return nil, err
	}
	return Middleware(mw), nil
}

// JWTAuth accepts requests carrying a valid HS256 bearer token signed
// with secret.
func JWTAuth(secret string) (Middleware, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	tokenAuth := jwtauth.New("HS256", []byte(secret), nil)
	verifier := jwtauth.Verifier(tokenAuth)
	return func(next http.Handler) http.Handler {
		return verifier(jwtauth.Authenticator(next))
	}, nil
}
