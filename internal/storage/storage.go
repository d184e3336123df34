// Package storage opens the configured backend and exposes its repositories.
package storage

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-order-engine/internal/domain/auth"
	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/product"
	"github.com/xenking/pos-order-engine/internal/domain/report"
	"github.com/xenking/pos-order-engine/internal/storage/postgres"
	"github.com/xenking/pos-order-engine/internal/storage/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and locates the storage backend.
type Config struct {
	Driver      string `default:"postgres" usage:"storage driver: postgres or sqlite"`
	DatabaseURL string `usage:"PostgreSQL connection URL"`
	SQLitePath  string `default:"pos.db" usage:"SQLite database file"`
}

// Orders is the order repository with the aggregate reads used by reports.
type Orders interface {
	order.Repository
	report.OrderReader
}

// Catalog is the catalog repository with the writes used for seeding.
type Catalog interface {
	product.Repository
	UpsertProduct(ctx context.Context, p product.Product) error
	UpsertModifierGroup(ctx context.Context, position int, g product.ModifierGroup) error
}

// APIKeys is the API key repository with the write used for seeding.
type APIKeys interface {
	auth.Repository
	UpsertAPIKey(ctx context.Context, info auth.APIKeyInfo) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Orders  Orders
	Catalog Catalog
	APIKeys APIKeys

	ping  func(ctx context.Context) error
	close func()
}

// Open connects to the backend named by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("database url is required for the postgres driver")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "migrate")
		}
		return &Store{
			Orders:  postgres.NewOrderRepository(pool),
			Catalog: postgres.NewProductRepository(pool),
			APIKeys: postgres.NewAPIKeyRepository(pool),
			ping:    pool.Ping,
			close:   pool.Close,
		}, nil

	case DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		return &Store{
			Orders:  sqlite.NewOrderRepository(db),
			Catalog: sqlite.NewProductRepository(db),
			APIKeys: sqlite.NewAPIKeyRepository(db),
			ping:    db.PingContext,
			close:   func() { _ = db.Close() },
		}, nil

	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend connections.
func (s *Store) Close() {
	s.close()
}
