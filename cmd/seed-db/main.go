// Command seed-db loads the product catalog, its modifier groups and a
// register API key into the configured store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-order-engine/db"
	"github.com/xenking/pos-order-engine/internal/domain/auth"
	"github.com/xenking/pos-order-engine/internal/storage"
	"github.com/xenking/pos-order-engine/internal/wire"
)

func main() {
	var (
		cfg          storage.Config
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&cfg.Driver, "driver", storage.DriverPostgres, "storage driver: postgres or sqlite")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", "pos.db", "SQLite database file")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog JSON file (defaults to the embedded catalog)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or POS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or POS_API_KEY_PEPPER env)")
	flag.Parse()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("POS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or POS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("POS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, cfg storage.Config, catalogFile, apiKey, pepper string) error {
	catalog, err := loadCatalog(catalogFile)
	if err != nil {
		return err
	}

	slog.Info("opening store", slog.String("driver", cfg.Driver))
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	if err := seedCatalog(ctx, store.Catalog, catalog); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedAPIKey(ctx, store.APIKeys, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func loadCatalog(path string) (*wire.Catalog, error) {
	data := db.Catalog
	if path != "" {
		slog.Info("reading catalog file", slog.String("path", path))
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
	}
	return wire.DecodeCatalog(data)
}

func seedCatalog(ctx context.Context, repo storage.Catalog, c *wire.Catalog) error {
	slog.Info("upserting products", slog.Int("count", len(c.Products)))
	for _, p := range c.Products {
		if err := repo.UpsertProduct(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	slog.Info("upserting modifier groups", slog.Int("count", len(c.ModifierGroups)))
	for i, g := range c.ModifierGroups {
		if err := repo.UpsertModifierGroup(ctx, i+1, g); err != nil {
			return errors.Wrapf(err, "upsert modifier group %s", g.ID)
		}
		slog.Info("upserted modifier group", slog.String("id", g.ID), slog.Int("options", len(g.Options)))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo storage.APIKeys, apiKey, pepper string) error {
	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default register key",
		Scopes:  []string{auth.ScopeCreateOrder, auth.ScopeReadReports},
	}
	if err := repo.UpsertAPIKey(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
