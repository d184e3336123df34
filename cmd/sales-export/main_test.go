package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/report"
	"github.com/xenking/pos-order-engine/internal/storage"
)

// --- Mock implementations ---

type mockSales struct {
	orders []order.Order
	err    error
	got    order.DateRange
}

func (m *mockSales) ListSales(_ context.Context, r order.DateRange) (*report.Sales, error) {
	m.got = r
	if m.err != nil {
		return nil, m.err
	}
	return &report.Sales{Orders: m.orders}, nil
}

type mockOutput struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (m *mockOutput) Close() error {
	m.closed = true
	return m.closeErr
}

// --- Helpers ---

func testOrder(id, number string, at time.Time) order.Order {
	return order.Order{
		ID:            id,
		Number:        number,
		Subtotal:      decimal.RequireFromString("85"),
		Tax:           decimal.RequireFromString("13.6"),
		Total:         decimal.RequireFromString("98.6"),
		PaymentMethod: "cash",
		OperatorID:    "op-1",
		CreatedAt:     at,
		Lines: []order.Line{{
			OrderID: id, Position: 1, ProductID: "1", Name: "Hamburguesa Clásica", Category: "Comida",
			Quantity: 1, UnitPrice: decimal.RequireFromString("85"),
		}},
	}
}

func readLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	zr, err := pgzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()

	var out []map[string]any
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

// --- Tests ---

func TestExport_OldestFirst(t *testing.T) {
	jan15 := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	sales := &mockSales{orders: []order.Order{
		testOrder("b", "ORD-20240116-000001", jan15.Add(24*time.Hour)),
		testOrder("a", "ORD-20240115-000001", jan15),
	}}
	rng := order.DateRange{Start: order.NewDate(2024, time.January, 15)}

	var buf bytes.Buffer
	n, err := export(context.Background(), sales, rng, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, rng, sales.got)

	lines := readLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "ORD-20240115-000001", lines[0]["number"])
	assert.Equal(t, "ORD-20240116-000001", lines[1]["number"])
	assert.Equal(t, 98.6, lines[0]["total"])
	assert.Len(t, lines[0]["lines"], 1)
}

func TestExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := export(context.Background(), &mockSales{}, order.DateRange{}, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, readLines(t, buf.Bytes()))
}

func TestExport_ListError(t *testing.T) {
	var buf bytes.Buffer
	_, err := export(context.Background(), &mockSales{err: errors.New("boom")}, order.DateRange{}, &buf)
	require.ErrorContains(t, err, "boom")
	assert.Zero(t, buf.Len())
}

func TestExportTo_CloseError(t *testing.T) {
	at := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	sales := &mockSales{orders: []order.Order{testOrder("a", "ORD-20240115-000001", at)}}
	out := &mockOutput{closeErr: errors.New("no space left on device")}

	n, err := exportTo(context.Background(), sales, order.DateRange{}, out)
	require.ErrorContains(t, err, "close output")
	require.ErrorContains(t, err, "no space left on device")
	assert.Equal(t, 1, n)
	assert.True(t, out.closed)
}

func TestExportTo_ExportErrorKeptOverCloseError(t *testing.T) {
	out := &mockOutput{closeErr: errors.New("no space left on device")}

	_, err := exportTo(context.Background(), &mockSales{err: errors.New("boom")}, order.DateRange{}, out)
	require.ErrorContains(t, err, "boom")
	assert.NotContains(t, err.Error(), "close output")
	assert.True(t, out.closed)
}

func TestExportTo_ClosesOnSuccess(t *testing.T) {
	out := &mockOutput{}

	_, err := exportTo(context.Background(), &mockSales{}, order.DateRange{}, out)
	require.NoError(t, err)
	assert.True(t, out.closed)
	assert.Empty(t, readLines(t, out.Bytes()))
}

func TestParseRange(t *testing.T) {
	rng, err := parseRange("2024-01-15", "2024-01-16")
	require.NoError(t, err)
	assert.Equal(t, order.NewDate(2024, time.January, 15), rng.Start)
	assert.Equal(t, order.NewDate(2024, time.January, 16), rng.End)

	rng, err = parseRange("", "")
	require.NoError(t, err)
	assert.True(t, rng.Start.IsZero())

	_, err = parseRange("2024-01-16", "2024-01-15")
	var invRange *order.InvalidRangeError
	require.ErrorAs(t, err, &invRange)

	_, err = parseRange("yesterday", "")
	require.Error(t, err)
}

func TestRun_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := storage.Config{Driver: storage.DriverSQLite, SQLitePath: filepath.Join(dir, "pos.db")}
	out := filepath.Join(dir, "sales.jsonl.gz")

	require.NoError(t, run(context.Background(), cfg, order.DateRange{}, time.UTC, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, readLines(t, data))
}

func TestRun_CreateOutputError(t *testing.T) {
	dir := t.TempDir()
	cfg := storage.Config{Driver: storage.DriverSQLite, SQLitePath: filepath.Join(dir, "pos.db")}

	err := run(context.Background(), cfg, order.DateRange{}, time.UTC, filepath.Join(dir, "missing", "sales.jsonl.gz"))
	require.ErrorContains(t, err, "create output")
}
