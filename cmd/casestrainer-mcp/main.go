package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/casestrainer/internal/common"
)

func main() {
	// The MCP binary is a client of a running casestrainer server; it only
	// needs the server address.
	baseURL := os.Getenv("CASESTRAINER_URL")
	if baseURL == "" {
		configPath := os.Getenv("CASESTRAINER_CONFIG")
		if configPath == "" {
			configPath = "casestrainer.toml"
		}
		if _, err := os.Stat(configPath); err == nil {
			config, err := common.LoadFromFile(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				os.Exit(1)
			}
			baseURL = fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
		} else {
			baseURL = "http://localhost:8080"
		}
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	client := newAPIClient(baseURL)

	mcpServer := server.NewMCPServer(
		"casestrainer",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createAnalyzeTextTool(), handleAnalyzeText(client, logger))
	mcpServer.AddTool(createAnalyzeURLTool(), handleAnalyzeURL(client, logger))
	mcpServer.AddTool(createGetTaskStatusTool(), handleGetTaskStatus(client, logger))
	mcpServer.AddTool(createGetResultTool(), handleGetResult(client, logger))

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
