package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes granted to register API keys.
const (
	ScopeCreateOrder = "create_order"
	ScopeReadReports = "read_reports"
)

// ErrKeyNotFound is returned by repositories when no active key matches.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo identifies a register or back-office client by its hashed key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, the form in which
// keys are stored.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
