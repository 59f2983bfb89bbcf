package provider

import (
	"strings"

	"portfolio_tracker/internal/app/port"
)

type accountSeedProviderImpl struct {
	source port.AccountSeedProvider
	logger port.Logger
}

// NewAccountSeedProvider wraps a seed source, dropping repeated addresses (case-insensitive).
func NewAccountSeedProvider(source port.AccountSeedProvider, logger port.Logger) port.AccountSeedProvider {
	return &accountSeedProviderImpl{source: source, logger: logger}
}

// GetAccounts returns the seed accounts in file order without duplicates.
func (p *accountSeedProviderImpl) GetAccounts() ([]string, error) {
	accounts, err := p.source.GetAccounts()
	if err != nil {
		p.logger.Error("Failed to load seed accounts", "error", err)
		return nil, err
	}

	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			p.logger.Debug("Duplicate seed account skipped", "address", a)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
