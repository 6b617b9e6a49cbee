package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the risk MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolPredictFraudRisk = mcp.NewTool("predict_fraud_risk",
	mcp.WithDescription(
		"Assess the fraud risk of a ledger account from its recent transaction history. "+
			"Returns a 0-100 risk score, a tier (low/medium/high/critical), a confidence value, "+
			"any anomaly alerts and recommended actions."),
	mcp.WithString("account_id",
		mcp.Required(),
		mcp.Description("Ledger account in shard.realm.num form (e.g. '0.0.12345')")),
)

var ToolBatchPredict = mcp.NewTool("batch_predict",
	mcp.WithDescription(
		"Assess up to 100 accounts in one call. Results come back in the order requested. "+
			"Use this instead of repeated predict_fraud_risk calls when screening several accounts."),
	mcp.WithArray("account_ids",
		mcp.Required(),
		mcp.Description("Ledger accounts to assess (e.g. ['0.0.1001', '0.0.1002'])"),
		mcp.WithStringItems()),
)

var ToolGetModelMetrics = mcp.NewTool("get_model_metrics",
	mcp.WithDescription(
		"Get the reported performance summary of the scoring model: accuracy, precision, recall, F1 "+
			"and prediction counts."),
)

var ToolGetRiskHistory = mcp.NewTool("get_risk_history",
	mcp.WithDescription(
		"List previously recorded risk assessments for an account, newest first. "+
			"Useful to see whether an account's risk is trending up."),
	mcp.WithString("account_id",
		mcp.Required(),
		mcp.Description("Ledger account in shard.realm.num form (e.g. '0.0.12345')")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of assessments to return (default 10)")),
)
