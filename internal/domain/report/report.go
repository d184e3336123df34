// Package report derives sales analytics from the committed order history.
//
// Every report accepts the same inclusive day range. Product rankings are
// summed by the store; the summary and the daily series are folded from the
// order totals in the business time zone.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-order-engine/internal/domain/order"
)

// DefaultLimit is the ranking size used when a caller passes no limit.
const DefaultLimit = 3

// Summary holds the headline figures of a sales listing.
type Summary struct {
	TotalSales    decimal.Decimal
	OrderCount    int
	AverageTicket decimal.Decimal
}

// Sales is the result of a sales listing: matching orders newest first and
// their summary.
type Sales struct {
	Orders  []order.Order
	Summary Summary
}

// OrderTotal is the creation time and total of one order.
type OrderTotal struct {
	CreatedAt time.Time
	Total     decimal.Decimal
}

// ProductSales is one row of a product ranking.
type ProductSales struct {
	ProductID     string
	Name          string
	Category      string
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
}

// DailySales is one point of the daily series.
type DailySales struct {
	Date       order.Date
	OrderCount int64
	TotalSales decimal.Decimal
}

// Dashboard bundles every report for one range.
type Dashboard struct {
	Summary Summary
	Top     []ProductSales
	Bottom  []ProductSales
	Daily   []DailySales
}
