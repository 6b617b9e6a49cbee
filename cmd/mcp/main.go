// Risk MCP server: exposes the fraud risk engine as MCP tools over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/txrisk/internal/config"
	"github.com/mbd888/txrisk/internal/logging"
	"github.com/mbd888/txrisk/internal/mcpserver"
	appserver "github.com/mbd888/txrisk/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	engine, cleanup, err := appserver.NewEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build risk engine: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	s := mcpserver.NewMCPServer(engine)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
