package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "pos.db")})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
	assert.NotNil(t, s.Orders)
	assert.NotNil(t, s.Catalog)
	assert.NotNil(t, s.APIKeys)

	products, err := s.Catalog.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Driver: DriverPostgres})
	require.Error(t, err)

	_, err = Open(ctx, Config{Driver: "mysql"})
	require.ErrorContains(t, err, "unknown storage driver")
}
