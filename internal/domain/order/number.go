package order

import "fmt"

const numberPrefix = "ORD"

// FormatNumber renders the human-readable order number for the seq-th order
// of day, e.g. ORD-20240115-000042. Counters are per day and strictly
// increasing, so numbers are unique by construction.
func FormatNumber(day Date, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", numberPrefix, day.Compact(), seq)
}
