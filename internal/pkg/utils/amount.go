package utils

import (
	"math"
	"math/big"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// amountSuffixes are the magnitude suffixes used by NormalizeAmount, one per power of 1000.
var amountSuffixes = []string{"", "k", "M", "B", "T", "q", "Q"}

// NormalizeAmount renders an amount with a magnitude suffix and two decimals.
// Example: 1234.5 => "1.23k", 999.99 => "999.99", -1500 => "-1.50k". Magnitudes past "Q"
// get the "?" suffix; NaN and infinities render as "?".
func NormalizeAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "?"
	}
	if amount < 0 {
		return "-" + NormalizeAmount(-amount)
	}

	idx := 0
	for amount >= 1000 {
		amount /= 1000
		idx++
	}

	suffix := "?"
	if idx < len(amountSuffixes) {
		suffix = amountSuffixes[idx]
	}
	return strconv.FormatFloat(amount, 'f', 2, 64) + suffix
}

// ToUnits converts a raw integer amount into token units (raw / 10^decimals).
func ToUnits(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}

// FormatUSD renders a USD value as en-US currency, e.g. "$1,234.56".
func FormatUSD(value float64) string {
	cents := decimal.NewFromFloat(value).Round(2).Shift(2).IntPart()
	return money.New(cents, money.USD).Display()
}
