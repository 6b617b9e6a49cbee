package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// NewMCPServer creates an MCP server exposing the risk engine as tools.
func NewMCPServer(engine Assessor) *server.MCPServer {
	s := server.NewMCPServer("txrisk", Version)
	h := NewHandlers(engine)

	s.AddTool(ToolPredictFraudRisk, h.HandlePredictFraudRisk)
	s.AddTool(ToolBatchPredict, h.HandleBatchPredict)
	s.AddTool(ToolGetModelMetrics, h.HandleGetModelMetrics)
	s.AddTool(ToolGetRiskHistory, h.HandleGetRiskHistory)

	return s
}
