package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/txrisk/internal/pagination"
	"github.com/mbd888/txrisk/internal/risk"
	"github.com/mbd888/txrisk/internal/validation"
)

// Assessor is the part of *risk.Engine the tools call.
type Assessor interface {
	PredictFraudRisk(ctx context.Context, accountID string) *risk.RiskAssessment
	BatchPredict(ctx context.Context, accountIDs []string) []*risk.RiskAssessment
	ModelMetrics() risk.ModelMetrics
	History(ctx context.Context, accountID string, limit int, before *pagination.Cursor) ([]*risk.AuditEntry, error)
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	engine Assessor
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine Assessor) *Handlers {
	return &Handlers{engine: engine}
}

// HandlePredictFraudRisk assesses one account.
func (h *Handlers) HandlePredictFraudRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := validation.SanitizeAccountID(req.GetString("account_id", ""))
	if accountID == "" {
		return mcp.NewToolResultError("account_id is required"), nil
	}
	if !validation.IsValidAccountID(accountID) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid account_id %q: expected shard.realm.num or a 0x alias", accountID)), nil
	}

	a := h.engine.PredictFraudRisk(ctx, accountID)
	return mcp.NewToolResultText(formatAssessment(a)), nil
}

// HandleBatchPredict assesses several accounts.
func (h *Handlers) HandleBatchPredict(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := accountIDsArg(req.GetArguments()["account_ids"])
	for i := range ids {
		ids[i] = validation.SanitizeAccountID(ids[i])
	}
	if errs := validation.Validate(validation.ValidAccountIDs("account_ids", ids)); len(errs) > 0 {
		return mcp.NewToolResultError(errs.Error()), nil
	}

	results := h.engine.BatchPredict(ctx, ids)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Assessed %d account(s):\n\n", len(results))
	for i, a := range results {
		fmt.Fprintf(&sb, "%d. %s  score %.2f  %s", i+1, a.AccountID, a.RiskScore, strings.ToUpper(string(a.RiskLevel)))
		if a.DataUnavailable {
			sb.WriteString("  (no history)")
		} else if len(a.Alerts) > 0 {
			fmt.Fprintf(&sb, "  alerts: %s", alertTypes(a.Alerts))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleGetModelMetrics reports the model summary.
func (h *Handlers) HandleGetModelMetrics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m := h.engine.ModelMetrics()

	var sb strings.Builder
	sb.WriteString("Model Metrics:\n")
	fmt.Fprintf(&sb, "  Accuracy: %.2f\n", m.Accuracy)
	fmt.Fprintf(&sb, "  Precision: %.2f\n", m.Precision)
	fmt.Fprintf(&sb, "  Recall: %.2f\n", m.Recall)
	fmt.Fprintf(&sb, "  F1 Score: %.2f\n", m.F1Score)
	fmt.Fprintf(&sb, "  Total Predictions: %d\n", m.TotalPredictions)
	fmt.Fprintf(&sb, "  True Positives: %d\n", m.TruePositives)
	fmt.Fprintf(&sb, "  False Positives: %d\n", m.FalsePositives)
	if !m.LastUpdated.IsZero() {
		fmt.Fprintf(&sb, "  Last Updated: %s\n", m.LastUpdated.Format("2006-01-02"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleGetRiskHistory lists recorded assessments.
func (h *Handlers) HandleGetRiskHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := validation.SanitizeAccountID(req.GetString("account_id", ""))
	if !validation.IsValidAccountID(accountID) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid account_id %q", accountID)), nil
	}
	limit := int(req.GetFloat("limit", defaultHistoryLimit))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.engine.History(ctx, accountID, limit, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load history: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No recorded assessments for %s.", accountID)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recorded assessments for %s (newest first):\n\n", accountID)
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %s  score %.2f  %s\n",
			e.RecordedAt.Format("2006-01-02 15:04:05"),
			e.Assessment.RiskScore,
			e.Assessment.RiskLevel)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// --- Formatting helpers ---

func formatAssessment(a *risk.RiskAssessment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk Assessment for %s:\n", a.AccountID)
	fmt.Fprintf(&sb, "  Score: %.2f / 100\n", a.RiskScore)
	fmt.Fprintf(&sb, "  Level: %s\n", strings.ToUpper(string(a.RiskLevel)))
	fmt.Fprintf(&sb, "  Confidence: %.0f%%\n", a.Confidence*100)
	if a.DataUnavailable {
		sb.WriteString("  Note: no usable transaction history was available\n")
	}

	f := a.Features
	sb.WriteString("\nFeatures:\n")
	fmt.Fprintf(&sb, "  Transactions/day: %.2f\n", f.TransactionFrequency)
	fmt.Fprintf(&sb, "  Failure rate: %.1f%%\n", f.FailureRate*100)
	fmt.Fprintf(&sb, "  Night activity: %.1f%%\n", f.NightTimeActivity*100)
	fmt.Fprintf(&sb, "  Account age: %.1f days\n", f.AccountAge)
	fmt.Fprintf(&sb, "  Counterparties: %.0f\n", f.UniqueCounterparties)
	fmt.Fprintf(&sb, "  Rapid-fire pairs: %.0f\n", f.RapidFireCount)

	if len(a.Alerts) > 0 {
		sb.WriteString("\nAlerts:\n")
		for _, alert := range a.Alerts {
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", alert.Severity, alert.Type, alert.Description)
		}
	}

	if len(a.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	}
	return sb.String()
}

func alertTypes(alerts []risk.AnomalyEvent) string {
	names := make([]string, len(alerts))
	for i, a := range alerts {
		names[i] = string(a.Type)
	}
	return strings.Join(names, ", ")
}

// accountIDsArg accepts a JSON array or a comma-separated string.
func accountIDsArg(raw any) []string {
	switch v := raw.(type) {
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			} else {
				ids = append(ids, fmt.Sprint(item))
			}
		}
		return ids
	case []string:
		return append([]string(nil), v...)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}
