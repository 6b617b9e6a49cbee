package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mbd888/txrisk/internal/risk"
)

// PostgresProvider reads histories from the ledger_transactions table.
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider creates a provider over db.
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// GetHistory returns up to limit rows newest first. Rows that fail to scan
// are skipped.
func (p *PostgresProvider) GetHistory(ctx context.Context, accountID string, limit int) ([]risk.TransactionRecord, error) {
	if limit <= 0 {
		limit = risk.DefaultHistoryLimit
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT transaction_id, consensus_timestamp, fee_amount, result, counterparty_id
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY consensus_timestamp DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []risk.TransactionRecord
	for rows.Next() {
		var (
			r      risk.TransactionRecord
			fee    decimal.Decimal
			result string
		)
		if err := rows.Scan(&r.TransactionID, &r.ConsensusTimestamp, &fee, &result, &r.CounterpartyID); err != nil {
			continue
		}
		r.ConsensusTimestamp = r.ConsensusTimestamp.UTC()
		r.FeeAmount = fee
		r.Result = risk.TxResult(result)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Record inserts ledger rows for an account. Rows already present (by
// transaction ID) are left untouched.
func (p *PostgresProvider) Record(ctx context.Context, accountID string, records ...risk.TransactionRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_transactions (
			transaction_id, account_id, consensus_timestamp, fee_amount, result, counterparty_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.TransactionID,
			accountID,
			r.ConsensusTimestamp.UTC(),
			r.FeeAmount,
			string(r.Result),
			r.CounterpartyID,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", r.TransactionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger rows: %w", err)
	}
	return nil
}
