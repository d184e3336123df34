package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-order-engine/internal/domain/product"
)

const (
	listAvailableSQL = `SELECT id, name, category, price, available
		FROM products WHERE available ORDER BY category, name, id`

	listModifierGroupsSQL = `SELECT g.id, g.name, g.kind, o.id, o.label, o.price_delta
		FROM modifier_groups g
		LEFT JOIN modifier_options o ON o.group_id = g.id
		ORDER BY g.position, g.id, o.position, o.id`

	upsertProductSQL = `INSERT INTO products (id, name, category, price, available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			available = EXCLUDED.available`

	upsertModifierGroupSQL = `INSERT INTO modifier_groups (id, name, kind, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			position = EXCLUDED.position`

	deleteModifierOptionsSQL = `DELETE FROM modifier_options WHERE group_id = $1`

	insertModifierOptionSQL = `INSERT INTO modifier_options (group_id, id, label, price_delta, position)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListAvailable returns the products currently offered for sale.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listAvailableSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Available)
	return p, err
}

// ListModifierGroups returns every modifier group with its options.
func (r *ProductRepository) ListModifierGroups(ctx context.Context) ([]product.ModifierGroup, error) {
	rows, err := r.pool.Query(ctx, listModifierGroupsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing modifier groups: %w", err)
	}
	defer rows.Close()

	var groups []product.ModifierGroup
	for rows.Next() {
		var (
			g        product.ModifierGroup
			kind     string
			optID    *string
			optLabel *string
			optDelta decimal.NullDecimal
		)
		if err := rows.Scan(&g.ID, &g.Name, &kind, &optID, &optLabel, &optDelta); err != nil {
			return nil, fmt.Errorf("scanning modifier group: %w", err)
		}
		g.Kind = product.SelectionKind(kind)

		if n := len(groups); n == 0 || groups[n-1].ID != g.ID {
			groups = append(groups, g)
		}
		if optID != nil {
			opt := product.Option{ID: *optID, PriceDelta: optDelta.Decimal}
			if optLabel != nil {
				opt.Label = *optLabel
			}
			cur := &groups[len(groups)-1]
			cur.Options = append(cur.Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing modifier groups: %w", err)
	}
	return groups, nil
}

// UpsertProduct inserts or updates a catalog product.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p product.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Category, p.Price, p.Available); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertModifierGroup inserts or updates a modifier group and replaces its
// options. position orders the group in listings.
func (r *ProductRepository) UpsertModifierGroup(ctx context.Context, position int, g product.ModifierGroup) error {
	if !g.Kind.Valid() {
		return errors.Errorf("modifier group %q: unknown kind %q", g.ID, g.Kind)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertModifierGroupSQL, g.ID, g.Name, string(g.Kind), position); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteModifierOptionsSQL, g.ID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, o := range g.Options {
			batch.Queue(insertModifierOptionSQL, g.ID, o.ID, o.Label, o.PriceDelta, i)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("upserting modifier group %q: %w", g.ID, err)
	}
	return nil
}
