//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/pos-order-engine/internal/domain/auth"
	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "pos",
				"POSTGRES_PASSWORD": "pos",
				"POSTGRES_DB":       "pos",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Printf("start postgres container: %v", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		log.Printf("container host: %v", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Printf("container port: %v", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://pos:pos@%s:%s/pos?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Printf("connect: %v", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Printf("migrate: %v", err)
		return 1
	}

	return m.Run()
}

func resetTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE order_lines, orders, order_counters, modifier_options, modifier_groups, products, api_keys`)
	require.NoError(t, err)
}

func newOrder(t *testing.T, at time.Time, lines ...order.CartLine) *order.Order {
	t.Helper()
	totals, err := order.Compute(lines, order.DefaultTaxRate)
	require.NoError(t, err)

	o := &order.Order{
		ID:            uuid.NewString(),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: "cash",
		OperatorID:    "op-1",
		CreatedAt:     at.UTC().Truncate(time.Microsecond),
	}
	for i, l := range lines {
		o.Lines = append(o.Lines, order.Line{
			OrderID:   o.ID,
			Position:  i + 1,
			ProductID: l.ProductID,
			Name:      l.Name,
			Category:  l.Category,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Modifiers: l.Modifiers,
		})
	}
	return o
}

func burger(qty int) order.CartLine {
	return order.CartLine{
		ProductID: "1",
		Name:      "Hamburguesa Clásica",
		Category:  "Comida",
		UnitPrice: decimal.RequireFromString("85.00"),
		Quantity:  qty,
	}
}

var jan15 = order.NewDate(2024, time.January, 15)

func TestOrderRepository_RoundTrip(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	line := burger(2)
	line.Modifiers = order.Selections{"size": {"large"}}
	o := newOrder(t, time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC), line)

	require.NoError(t, repo.Create(ctx, o, jan15))
	assert.Equal(t, "ORD-20240115-000001", o.Number)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("170.00").Equal(got.Subtotal))
	assert.True(t, decimal.RequireFromString("27.20").Equal(got.Tax))
	assert.True(t, decimal.RequireFromString("197.20").Equal(got.Total))
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, line.Modifiers, got.Lines[0].Modifiers)

	_, err = repo.Get(ctx, uuid.NewString())
	var nfErr *order.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestOrderRepository_ListWindow(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	inside := newOrder(t, time.Date(2024, time.January, 15, 23, 59, 59, 0, time.UTC), burger(1))
	outside := newOrder(t, time.Date(2024, time.January, 16, 0, 0, 1, 0, time.UTC), burger(1))
	require.NoError(t, repo.Create(ctx, inside, jan15))
	require.NoError(t, repo.Create(ctx, outside, jan15.AddDays(1)))

	got, err := repo.List(ctx, order.DateRange{End: jan15}.Window(time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)

	got, err = repo.List(ctx, order.Window{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, outside.ID, got[0].ID, "newest first")
}

func TestOrderRepository_ConflictSkipsTakenNumber(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	_, err := testPool.Exec(ctx, insertOrderSQL,
		"restored", "ORD-20240115-000001",
		decimal.RequireFromString("10"), decimal.RequireFromString("1.60"), decimal.RequireFromString("11.60"),
		"cash", "op-1", time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	o := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), burger(1))
	require.ErrorIs(t, repo.Create(ctx, o, jan15), order.ErrNumberConflict)
	require.NoError(t, repo.Create(ctx, o, jan15))
	assert.Equal(t, "ORD-20240115-000002", o.Number)
}

func TestOrderRepository_ConcurrentCommits(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	svc, err := order.NewService(NewProductRepository(testPool), repo, order.Config{
		TaxRate:  order.DefaultTaxRate,
		Location: time.UTC,
	})
	require.NoError(t, err)

	const n = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := svc.Commit(ctx, order.CommitRequest{
				Lines:         []order.CartLine{burger(1)},
				PaymentMethod: "cash",
				OperatorID:    "op-1",
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[o.Number] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, n)
	all, err := repo.List(ctx, order.Window{})
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestOrderRepository_RejectsInconsistentTotals(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	o := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), burger(1))
	o.Total = o.Total.Add(decimal.RequireFromString("0.01"))
	require.Error(t, repo.Create(ctx, o, jan15))

	all, err := repo.List(ctx, order.Window{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOrderRepository_Aggregates(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	old := burger(1)
	old.Name = "Burger"
	old.UnitPrice = decimal.RequireFromString("80.00")
	first := newOrder(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), old)
	second := newOrder(t, time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC), burger(2))
	later := newOrder(t, time.Date(2024, time.January, 17, 10, 0, 0, 0, time.UTC), burger(1))
	require.NoError(t, repo.Create(ctx, first, jan15))
	require.NoError(t, repo.Create(ctx, second, jan15))
	require.NoError(t, repo.Create(ctx, later, jan15.AddDays(2)))

	w := order.DateRange{End: jan15}.Window(time.UTC)
	sold, err := repo.ProductSales(ctx, w)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, "1", sold[0].ProductID)
	assert.Equal(t, "Hamburguesa Clásica", sold[0].Name, "name comes from the newest sale")
	assert.Equal(t, int64(3), sold[0].TotalQuantity)
	assert.True(t, decimal.RequireFromString("250.00").Equal(sold[0].TotalRevenue))

	totals, err := repo.OrderTotals(ctx, w)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.True(t, first.CreatedAt.Equal(totals[0].CreatedAt), "oldest first")
	assert.True(t, first.Total.Equal(totals[0].Total))
	assert.True(t, second.Total.Equal(totals[1].Total))

	all, err := repo.OrderTotals(ctx, order.Window{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCatalogAndKeys(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	products := NewProductRepository(testPool)
	keys := NewAPIKeyRepository(testPool)

	require.NoError(t, products.UpsertProduct(ctx, product.Product{
		ID: "1", Name: "Hamburguesa Clásica", Category: "Comida",
		Price: decimal.RequireFromString("85.00"), Available: true,
	}))
	require.NoError(t, products.UpsertProduct(ctx, product.Product{
		ID: "2", Name: "Pizza", Category: "Comida",
		Price: decimal.RequireFromString("120.00"), Available: false,
	}))
	list, err := products.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].ID)

	require.NoError(t, products.UpsertModifierGroup(ctx, 0, product.ModifierGroup{
		ID: "size", Name: "Tamaño", Kind: product.SingleChoice,
		Options: []product.Option{{ID: "small", Label: "Chico"}, {ID: "large", Label: "Grande"}},
	}))
	groups, err := products.ListModifierGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Options, 2)

	hash := auth.HashKey([]byte("pepper"), "key")
	require.NoError(t, keys.UpsertAPIKey(ctx, auth.APIKeyInfo{
		ID: "default", KeyHash: hash, Name: "Caja", Scopes: []string{auth.ScopeCreateOrder},
	}))
	info, err := keys.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, info.HasScope(auth.ScopeCreateOrder))

	_, err = keys.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
