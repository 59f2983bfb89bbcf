package entity

import "errors"

var (
	// ErrIndexOutOfRange is returned when a snapshot index is outside [0, len).
	ErrIndexOutOfRange = errors.New("snapshot index out of range")
	// ErrStaleGeneration is returned when a reload finished after a newer one started.
	ErrStaleGeneration = errors.New("stale generation discarded")
	// ErrUnsupportedChain is returned for chain ids missing from the catalog.
	ErrUnsupportedChain = errors.New("unsupported chain")
	// ErrInvalidAddress is returned for malformed account addresses.
	ErrInvalidAddress = errors.New("invalid account address")
	// ErrDuplicateAccount is returned when an account is already tracked.
	ErrDuplicateAccount = errors.New("account already tracked")
	// ErrAccountNotFound is returned when removing an account that is not tracked.
	ErrAccountNotFound = errors.New("account not tracked")
	// ErrKeyNotFound is returned by key/value stores for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)

// PortfolioError describes a single retrieval failure (one wallet, one token or one price).
// Failures are reported alongside results; they never abort a batch.
type PortfolioError struct {
	WalletAddress string `json:"walletAddress,omitempty"`
	ChainID       string `json:"chainId"`
	TokenAddress  string `json:"tokenAddress,omitempty"`
	IsNative      bool   `json:"isNative"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
}

// Retrieval failure kinds.
const (
	FailureNativeBalance = "native_balance"
	FailureTokenBalances = "token_balances"
	FailurePrice         = "price"
)
