package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
)

func textError(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf(format, args...)),
		},
	}
}

func textResult(markdown string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(markdown),
		},
	}
}

// handleAnalyzeText implements the analyze_text tool
func handleAnalyzeText(client *apiClient, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return textError("Error: text parameter is required"), nil
		}
		forceMode := request.GetString("force_mode", "")

		resp, err := client.AnalyzeText(ctx, text, forceMode)
		if err != nil {
			logger.Error().Err(err).Msg("Analyze failed")
			return textError("Analyze error: %v", err), nil
		}

		if resp.Mode == "queued" {
			return textResult(formatQueued(resp.TaskID)), nil
		}
		return textResult(formatResult(resp.Result)), nil
	}
}

// handleAnalyzeURL implements the analyze_url tool
func handleAnalyzeURL(client *apiClient, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return textError("Error: url parameter is required"), nil
		}
		forceMode := request.GetString("force_mode", "")

		resp, err := client.AnalyzeURL(ctx, url, forceMode)
		if err != nil {
			logger.Error().Err(err).Str("url", url).Msg("Analyze failed")
			return textError("Analyze error: %v", err), nil
		}

		if resp.Mode == "queued" {
			return textResult(formatQueued(resp.TaskID)), nil
		}
		return textResult(formatResult(resp.Result)), nil
	}
}

// handleGetTaskStatus implements the get_task_status tool
func handleGetTaskStatus(client *apiClient, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil || taskID == "" {
			return textError("Error: task_id parameter is required"), nil
		}

		status, err := client.TaskStatus(ctx, taskID)
		if err != nil {
			logger.Error().Err(err).Str("task_id", taskID).Msg("Task status failed")
			return textError("Task status error: %v", err), nil
		}

		return textResult(formatTaskStatus(status)), nil
	}
}

// handleGetResult implements the get_result tool
func handleGetResult(client *apiClient, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resultID, err := request.RequireString("result_id")
		if err != nil || resultID == "" {
			return textError("Error: result_id parameter is required"), nil
		}

		result, err := client.GetResult(ctx, resultID)
		if err != nil {
			logger.Error().Err(err).Str("result_id", resultID).Msg("Get result failed")
			return textError("Result not found: %v", err), nil
		}

		return textResult(formatResult(result)), nil
	}
}
