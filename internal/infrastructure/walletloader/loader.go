package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"portfolio_tracker/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
)

// WalletFileLoader implements port.AccountSeedProvider by reading one address per line.
// Blank lines and lines starting with '#' are ignored.
type WalletFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewWalletFileLoader creates a new WalletFileLoader.
func NewWalletFileLoader(filePath string, logger port.Logger) *WalletFileLoader {
	return &WalletFileLoader{
		filePath: filePath,
		logger:   logger,
	}
}

// GetAccounts reads wallet addresses from the configured file path. Invalid lines are skipped.
func (l *WalletFileLoader) GetAccounts() ([]string, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var accounts []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "0x") || !common.IsHexAddress(line) {
			l.logger.Warn("Skipping invalid wallet address format", "file", l.filePath, "line_number", lineNum, "address", line)
			continue
		}
		accounts = append(accounts, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", l.filePath, err)
	}

	l.logger.Info("Wallets loaded from file", "count", len(accounts), "path", l.filePath)
	return accounts, nil
}
