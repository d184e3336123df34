// Command sales-export writes the orders of a date range as gzip-compressed
// JSON lines, oldest first, for bookkeeping.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/domain/report"
	"github.com/xenking/pos-order-engine/internal/storage"
	"github.com/xenking/pos-order-engine/internal/wire"
)

func main() {
	var (
		cfg      storage.Config
		start    string
		end      string
		timezone string
		out      string
	)

	flag.StringVar(&cfg.Driver, "driver", storage.DriverPostgres, "storage driver: postgres or sqlite")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", "pos.db", "SQLite database file")
	flag.StringVar(&start, "start", "", "first day to export, YYYY-MM-DD (default: unbounded)")
	flag.StringVar(&end, "end", "", "last day to export, YYYY-MM-DD (default: unbounded)")
	flag.StringVar(&timezone, "timezone", "Local", "IANA time zone of the business day")
	flag.StringVar(&out, "out", "sales.jsonl.gz", `output file, "-" for stdout`)
	flag.Parse()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	rng, err := parseRange(start, end)
	if err != nil {
		slog.Error("invalid range", slog.String("error", err.Error()))
		os.Exit(2)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Error("invalid timezone", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, rng, loc, out); err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseRange(start, end string) (order.DateRange, error) {
	var (
		rng order.DateRange
		err error
	)
	if start != "" {
		if rng.Start, err = order.ParseDate(start); err != nil {
			return rng, err
		}
	}
	if end != "" {
		if rng.End, err = order.ParseDate(end); err != nil {
			return rng, err
		}
	}
	return rng, rng.Validate()
}

func run(ctx context.Context, cfg storage.Config, rng order.DateRange, loc *time.Location, out string) error {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	var wc io.WriteCloser = nopCloser{os.Stdout}
	if out != "-" {
		f, cerr := os.Create(out)
		if cerr != nil {
			return errors.Wrap(cerr, "create output")
		}
		wc = f
	}

	n, err := exportTo(ctx, report.NewEngine(store.Orders, store.Catalog, loc, nil), rng, wc)
	if err != nil {
		return err
	}
	slog.Info("export completed", slog.Int("orders", n), slog.String("out", out))
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// exportTo runs export on wc and closes it. A close error fails an
// otherwise successful export.
func exportTo(ctx context.Context, sales SalesLister, rng order.DateRange, wc io.WriteCloser) (n int, err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close output")
		}
	}()
	return export(ctx, sales, rng, wc)
}

// SalesLister lists the orders of a date range, newest first.
type SalesLister interface {
	ListSales(ctx context.Context, r order.DateRange) (*report.Sales, error)
}

// export writes one JSON order per line to a gzip stream on w, oldest first,
// and returns the number of orders written.
func export(ctx context.Context, sales SalesLister, rng order.DateRange, w io.Writer) (int, error) {
	s, err := sales.ListSales(ctx, rng)
	if err != nil {
		return 0, errors.Wrap(err, "list sales")
	}

	zw := pgzip.NewWriter(w)
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	for i := len(s.Orders) - 1; i >= 0; i-- {
		e.Reset()
		wire.EncodeOrder(e, &s.Orders[i])
		if _, err := zw.Write(append(e.Bytes(), '\n')); err != nil {
			_ = zw.Close()
			return 0, errors.Wrap(err, "write order")
		}
	}
	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(err, "flush gzip stream")
	}
	return len(s.Orders), nil
}
