package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-order-engine/internal/domain/auth"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "api_key"

// Authenticator authenticates API requests via HMAC-SHA256 hashed API keys.
type Authenticator struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewAuthenticator creates an Authenticator with the given API key
// repository and HMAC pepper.
func NewAuthenticator(apikeys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require returns a middleware admitting requests whose key holds at least
// one of scopes. Missing or unknown keys get 401, keys without a matching
// scope get 403.
func (a *Authenticator) Require(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := a.authenticate(r.Context(), r.Header.Get(APIKeyHeader))
			switch {
			case errors.Is(err, errUnauthorized):
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			case err != nil:
				zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
				return
			}

			if !hasAnyScope(info, scopes) {
				writeError(w, http.StatusForbidden, "api key lacks the required scope")
				return
			}

			ctx := zctx.With(r.Context(), zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errUnauthorized = errors.New("unauthorized")

// authenticate computes the HMAC-SHA256 of key, looks it up in the
// repository and compares the stored hash in constant time.
func (a *Authenticator) authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, errUnauthorized
	}
	hexHash := auth.HashKey(a.pepper, key)

	info, err := a.apikeys.FindByHash(ctx, hexHash)
	if errors.Is(err, auth.ErrKeyNotFound) {
		return nil, errUnauthorized
	}
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}

	// The stored row must hash to exactly what was computed.
	hash, _ := hex.DecodeString(hexHash)
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, errUnauthorized
	}
	return info, nil
}

func hasAnyScope(info *auth.APIKeyInfo, scopes []string) bool {
	for _, s := range scopes {
		if info.HasScope(s) {
			return true
		}
	}
	return false
}
