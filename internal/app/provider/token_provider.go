package provider

import (
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

type tokenProviderImpl struct {
	source port.TokenProvider
	logger port.Logger

	mu          sync.Mutex
	tokensCache map[string][]entity.TokenInfo
}

// NewTokenProvider wraps a TokenProvider so token lists are read once and then served from memory.
func NewTokenProvider(source port.TokenProvider, logger port.Logger) port.TokenProvider {
	return &tokenProviderImpl{source: source, logger: logger}
}

// GetTokensByNetwork loads token definitions on first use and caches them. The cached result
// is filtered to the requested networks.
func (p *tokenProviderImpl) GetTokensByNetwork(networks []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tokensCache == nil {
		tokens, err := p.source.GetTokensByNetwork(networks)
		if err != nil {
			p.logger.Error("Failed to load tokens", "error", err)
			return nil, err
		}
		p.tokensCache = tokens
		p.logger.Info("Tokens loaded and cached", "networks_with_tokens", len(tokens))
	}

	out := make(map[string][]entity.TokenInfo, len(networks))
	for _, n := range networks {
		if tokens, ok := p.tokensCache[n.ChainID]; ok {
			out[n.ChainID] = tokens
		}
	}
	return out, nil
}
