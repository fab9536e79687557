package services

import (
	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	bpsDivisor = decimal.NewFromInt(10000)
)

// ComputeTax returns tax on taxable (minor units) at rateBps basis points,
// rounded half away from zero to the nearest minor unit.
func ComputeTax(taxable int64, rateBps int) int64 {
	if taxable <= 0 || rateBps <= 0 {
		return 0
	}
	return decimal.NewFromInt(taxable).
		Mul(decimal.NewFromInt(int64(rateBps))).
		Div(bpsDivisor).
		Round(0).
		IntPart()
}

// FormatMinor renders minor units as a major-unit string, e.g. 123450 -> "1234.50".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}

// ParseMajor converts a major-unit string such as "1234.5" to minor units.
func ParseMajor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}
