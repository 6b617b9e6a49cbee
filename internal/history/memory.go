package history

import (
	"context"
	"sync"

	"github.com/mbd888/txrisk/internal/risk"
)

// MemoryProvider holds ledger records in memory for demo mode and tests.
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string][]risk.TransactionRecord
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{accounts: make(map[string][]risk.TransactionRecord)}
}

// Add appends records to an account's history.
func (p *MemoryProvider) Add(accountID string, records ...risk.TransactionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := append(p.accounts[accountID], records...)
	newestFirst(all)
	p.accounts[accountID] = all
}

// Accounts returns the IDs with at least one record.
func (p *MemoryProvider) Accounts() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.accounts))
	for id := range p.accounts {
		ids = append(ids, id)
	}
	return ids
}

// GetHistory returns up to limit records, newest first. Unknown accounts
// have an empty history.
func (p *MemoryProvider) GetHistory(ctx context.Context, accountID string, limit int) ([]risk.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	all := p.accounts[accountID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]risk.TransactionRecord, limit)
	copy(out, all[:limit])
	return out, nil
}
