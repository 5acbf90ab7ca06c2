package utils

import "github.com/shopspring/decimal"

// Monetary values are carried as decimals inside the pricing code and
// persisted as decimal(10,2) columns, so everything crossing that
// boundary is rounded to cents first.

// Dec converts a stored monetary value into a decimal.
func Dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Cents rounds a decimal to two places and returns the storable value.
func Cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
