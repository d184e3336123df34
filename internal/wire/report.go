package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pos-order-engine/internal/domain/report"
)

// EncodeSales writes a sales listing with its summary.
func EncodeSales(e *jx.Encoder, s *report.Sales) {
	e.ObjStart()
	e.FieldStart("summary")
	encodeSummary(e, s.Summary)
	e.FieldStart("orders")
	e.ArrStart()
	for i := range s.Orders {
		EncodeOrder(e, &s.Orders[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s report.Summary) {
	e.ObjStart()
	e.FieldStart("totalSales")
	encodeMoney(e, s.TotalSales)
	e.FieldStart("orderCount")
	e.Int(s.OrderCount)
	e.FieldStart("averageTicket")
	encodeMoney(e, s.AverageTicket)
	e.ObjEnd()
}

// EncodeProductSales writes a product ranking.
func EncodeProductSales(e *jx.Encoder, rows []report.ProductSales) {
	e.ArrStart()
	for _, r := range rows {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(r.ProductID)
		e.FieldStart("name")
		e.Str(r.Name)
		e.FieldStart("category")
		e.Str(r.Category)
		e.FieldStart("totalQuantity")
		e.Int64(r.TotalQuantity)
		e.FieldStart("totalRevenue")
		encodeMoney(e, r.TotalRevenue)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// EncodeDailySales writes the daily series.
func EncodeDailySales(e *jx.Encoder, rows []report.DailySales) {
	e.ArrStart()
	for _, r := range rows {
		e.ObjStart()
		e.FieldStart("date")
		e.Str(r.Date.String())
		e.FieldStart("orderCount")
		e.Int64(r.OrderCount)
		e.FieldStart("totalSales")
		encodeMoney(e, r.TotalSales)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// EncodeDashboard writes every report of a dashboard.
func EncodeDashboard(e *jx.Encoder, d *report.Dashboard) {
	e.ObjStart()
	e.FieldStart("summary")
	encodeSummary(e, d.Summary)
	e.FieldStart("topProducts")
	EncodeProductSales(e, d.Top)
	e.FieldStart("bottomProducts")
	EncodeProductSales(e, d.Bottom)
	e.FieldStart("dailySales")
	EncodeDailySales(e, d.Daily)
	e.ObjEnd()
}
