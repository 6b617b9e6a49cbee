// Package history supplies account transaction histories to the risk engine.
//
// Providers return records newest-first and honour the requested limit.
// MemoryProvider and PostgresProvider read locally held ledger rows;
// MirrorProvider reads a mirror node's REST API. ResilientProvider wraps any
// of them with retries, a circuit breaker and fetch metrics.
package history

import (
	"errors"
	"sort"

	"github.com/mbd888/txrisk/internal/risk"
)

var (
	// ErrAccountNotFound means the source has no such account. It is never retried.
	ErrAccountNotFound = errors.New("history: account not found")
	// ErrCircuitOpen means the source is failing and calls are being shed.
	ErrCircuitOpen = errors.New("history: source circuit open")
)

// Source names used in metrics, traces and circuit-breaker keys.
const (
	SourceMemory   = "memory"
	SourcePostgres = "postgres"
	SourceMirror   = "mirror"
)

var (
	_ risk.HistoryProvider = (*MemoryProvider)(nil)
	_ risk.HistoryProvider = (*PostgresProvider)(nil)
	_ risk.HistoryProvider = (*MirrorProvider)(nil)
	_ risk.HistoryProvider = (*ResilientProvider)(nil)
	_ risk.HistoryProvider = (*CachingProvider)(nil)
)

// newestFirst sorts records by consensus timestamp, descending.
func newestFirst(records []risk.TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ConsensusTimestamp.After(records[j].ConsensusTimestamp)
	})
}
