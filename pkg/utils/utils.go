package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartOfDay truncates a time to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CeilDiv divides a by b rounding up. Arguments must be positive.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// IsDateOverdue checks if a due date has passed
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// DecimalFromFloat converts float64 to decimal.Decimal
func DecimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
