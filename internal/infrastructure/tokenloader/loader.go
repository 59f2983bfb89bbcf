package tokenloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

// TokenFileLoader implements port.TokenProvider by reading <identifier>.json files
// (e.g. data/tokens/ethereum.json) from a directory.
type TokenFileLoader struct {
	tokenDirPath string
	logger       port.Logger
}

// NewTokenLoader creates a new TokenFileLoader.
func NewTokenLoader(tokenDirPath string, logger port.Logger) port.TokenProvider {
	return &TokenFileLoader{
		tokenDirPath: tokenDirPath,
		logger:       logger,
	}
}

// GetTokensByNetwork reads the token files of the given networks. Tokens whose chain id
// does not match their file are skipped, as are unreadable files.
// The result is keyed by hex chain id.
func (l *TokenFileLoader) GetTokensByNetwork(networks []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	tokensByChainID := make(map[string][]entity.TokenInfo)

	files, err := os.ReadDir(l.tokenDirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	networksByIdentifier := make(map[string]entity.NetworkDefinition, len(networks))
	for _, netDef := range networks {
		networksByIdentifier[netDef.Identifier] = netDef
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		identifier := strings.ToLower(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		networkDef, ok := networksByIdentifier[identifier]
		if !ok {
			l.logger.Debug("Token file for unknown network skipped", "file", file.Name())
			continue
		}

		filePath := filepath.Join(l.tokenDirPath, file.Name())
		tokensInFile, err := utils.LoadJSONFile[[]entity.TokenInfo](filePath)
		if err != nil {
			l.logger.Warn("Failed to load token file, skipping file.", "path", filePath, "error", err)
			continue
		}

		valid := make([]entity.TokenInfo, 0, len(tokensInFile))
		for _, token := range tokensInFile {
			if token.ChainID != networkDef.ChainNumber {
				l.logger.Warn("Token has mismatched ChainID in file, skipping token.",
					"file", filePath, "token_symbol", token.Symbol, "token_chain_id", token.ChainID,
					"expected_chain_id", networkDef.ChainNumber)
				continue
			}
			token.Address = entity.NormalizeAddress(token.Address)
			valid = append(valid, token)
		}

		if len(valid) > 0 {
			tokensByChainID[networkDef.ChainID] = append(tokensByChainID[networkDef.ChainID], valid...)
			l.logger.Info("Loaded tokens for network", "network", networkDef.Identifier, "count", len(valid))
		}
	}

	return tokensByChainID, nil
}
