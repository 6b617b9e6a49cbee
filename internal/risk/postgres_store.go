package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbd888/txrisk/internal/pagination"
)

// PostgresStore persists assessments in PostgreSQL. The schema lives in
// migrations/ and is applied with cmd/migrate.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Record(ctx context.Context, entry *AuditEntry) error {
	a := entry.Assessment

	featuresJSON, err := json.Marshal(a.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	alertsJSON, err := json.Marshal(a.Alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}
	recsJSON, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (
			id, account_id, risk_score, risk_level, confidence, features, alerts,
			recommendations, fingerprint, data_unavailable, evaluated_at, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		entry.ID,
		a.AccountID,
		a.RiskScore,
		string(a.RiskLevel),
		a.Confidence,
		featuresJSON,
		alertsJSON,
		recsJSON,
		a.Fingerprint,
		a.DataUnavailable,
		a.EvaluatedAt,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string, limit int, before *pagination.Cursor) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	const columns = `id, account_id, risk_score, risk_level, confidence, features, alerts,
		       recommendations, fingerprint, data_unavailable, evaluated_at, recorded_at`

	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+columns+`
			FROM risk_assessments
			WHERE account_id = $1
			ORDER BY recorded_at DESC, id DESC
			LIMIT $2
		`, accountID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+columns+`
			FROM risk_assessments
			WHERE account_id = $1 AND (recorded_at, id) < ($2, $3)
			ORDER BY recorded_at DESC, id DESC
			LIMIT $4
		`, accountID, before.At, before.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*AuditEntry
	for rows.Next() {
		var (
			e                                  AuditEntry
			a                                  RiskAssessment
			level                              string
			featuresJSON, alertsJSON, recsJSON []byte
			evaluatedAt, recordedAt            time.Time
		)
		if err := rows.Scan(&e.ID, &a.AccountID, &a.RiskScore, &level, &a.Confidence,
			&featuresJSON, &alertsJSON, &recsJSON, &a.Fingerprint, &a.DataUnavailable,
			&evaluatedAt, &recordedAt); err != nil {
			continue
		}
		a.RiskLevel = RiskLevel(level)
		a.EvaluatedAt = evaluatedAt.UTC()
		e.RecordedAt = recordedAt.UTC()
		_ = json.Unmarshal(featuresJSON, &a.Features)
		_ = json.Unmarshal(alertsJSON, &a.Alerts)
		_ = json.Unmarshal(recsJSON, &a.Recommendations)
		e.Assessment = &a
		result = append(result, &e)
	}
	return result, rows.Err()
}
