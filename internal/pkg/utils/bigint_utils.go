package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatBigInt converts a raw on-chain amount to an exact decimal string.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) (string, error) {
	if amount == nil {
		return "0", nil
	}
	if amount.Sign() < 0 {
		return "", fmt.Errorf("negative amount %s", amount.String())
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String(), nil
}

// ParseBigInt parses a base-10 integer string as returned by REST balance APIs.
func ParseBigInt(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", raw)
	}
	return v, nil
}
