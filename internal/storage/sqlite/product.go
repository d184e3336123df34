package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-order-engine/internal/domain/product"
)

const (
	listAvailableSQL = `SELECT id, name, category, price, available
		FROM products WHERE available = 1 ORDER BY category, name, id`

	listModifierGroupsSQL = `SELECT g.id, g.name, g.kind, o.id, o.label, o.price_delta
		FROM modifier_groups g
		LEFT JOIN modifier_options o ON o.group_id = g.id
		ORDER BY g.position, g.id, o.position, o.id`

	upsertProductSQL = `INSERT INTO products (id, name, category, price, available)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			price = excluded.price,
			available = excluded.available`

	upsertModifierGroupSQL = `INSERT INTO modifier_groups (id, name, kind, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			position = excluded.position`

	deleteModifierOptionsSQL = `DELETE FROM modifier_options WHERE group_id = ?`

	insertModifierOptionSQL = `INSERT INTO modifier_options (group_id, id, label, price_delta, position)
		VALUES (?, ?, ?, ?, ?)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by SQLite.
type ProductRepository struct {
	db *DB
}

// NewProductRepository returns a ProductRepository that uses the given handle.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListAvailable returns the products currently offered for sale.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.read.QueryContext(ctx, listAvailableSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Available); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// ListModifierGroups returns every modifier group with its options.
func (r *ProductRepository) ListModifierGroups(ctx context.Context) ([]product.ModifierGroup, error) {
	rows, err := r.db.read.QueryContext(ctx, listModifierGroupsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing modifier groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []product.ModifierGroup
	for rows.Next() {
		var (
			g        product.ModifierGroup
			kind     string
			optID    sql.NullString
			optLabel sql.NullString
			optDelta decimal.NullDecimal
		)
		if err := rows.Scan(&g.ID, &g.Name, &kind, &optID, &optLabel, &optDelta); err != nil {
			return nil, fmt.Errorf("scanning modifier group: %w", err)
		}
		g.Kind = product.SelectionKind(kind)

		if n := len(groups); n == 0 || groups[n-1].ID != g.ID {
			groups = append(groups, g)
		}
		if optID.Valid {
			cur := &groups[len(groups)-1]
			cur.Options = append(cur.Options, product.Option{
				ID:         optID.String,
				Label:      optLabel.String,
				PriceDelta: optDelta.Decimal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing modifier groups: %w", err)
	}
	return groups, nil
}

// UpsertProduct inserts or updates a catalog product.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p product.Product) error {
	if _, err := r.db.write.ExecContext(ctx, upsertProductSQL, p.ID, p.Name, p.Category, p.Price, p.Available); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertModifierGroup inserts or updates a modifier group and replaces its
// options. position orders the group in listings.
func (r *ProductRepository) UpsertModifierGroup(ctx context.Context, position int, g product.ModifierGroup) (err error) {
	if !g.Kind.Valid() {
		return errors.Errorf("modifier group %q: unknown kind %q", g.ID, g.Kind)
	}

	tx, err := r.db.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upserting modifier group %q: %w", g.ID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, upsertModifierGroupSQL, g.ID, g.Name, string(g.Kind), position); err != nil {
		return fmt.Errorf("upserting modifier group %q: %w", g.ID, err)
	}
	if _, err = tx.ExecContext(ctx, deleteModifierOptionsSQL, g.ID); err != nil {
		return fmt.Errorf("clearing options of %q: %w", g.ID, err)
	}
	for i, o := range g.Options {
		if _, err = tx.ExecContext(ctx, insertModifierOptionSQL, g.ID, o.ID, o.Label, o.PriceDelta, i); err != nil {
			return fmt.Errorf("inserting option %q of %q: %w", o.ID, g.ID, err)
		}
	}
	return tx.Commit()
}
