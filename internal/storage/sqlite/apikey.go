package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes
		FROM api_keys WHERE key_hash = ? AND active = 1`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = excluded.key_hash,
			name = excluded.name,
			scopes = excluded.scopes,
			active = 1`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by SQLite. Scopes are
// stored as a JSON array.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given handle.
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var (
		info   auth.APIKeyInfo
		scopes string
	)
	err := r.db.read.QueryRowContext(ctx, getAPIKeyByHashSQL, hash).Scan(&info.ID, &info.KeyHash, &info.Name, &scopes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}

	if err := jx.DecodeStr(scopes).Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		info.Scopes = append(info.Scopes, s)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("decoding scopes of api key %q: %w", info.ID, err)
	}
	return &info, nil
}

// UpsertAPIKey stores an active API key.
func (r *APIKeyRepository) UpsertAPIKey(ctx context.Context, info auth.APIKeyInfo) error {
	var e jx.Encoder
	e.ArrStart()
	for _, s := range info.Scopes {
		e.Str(s)
	}
	e.ArrEnd()

	if _, err := r.db.write.ExecContext(ctx, upsertAPIKeySQL, info.ID, info.KeyHash, info.Name, e.String()); err != nil {
		return fmt.Errorf("upserting api key %q: %w", info.ID, err)
	}
	return nil
}
