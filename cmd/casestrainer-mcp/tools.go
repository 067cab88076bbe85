package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAnalyzeTextTool returns the analyze_text tool definition
func createAnalyzeTextTool() mcp.Tool {
	return mcp.NewTool("analyze_text",
		mcp.WithDescription("Extract and verify legal case citations in a block of text. Small documents return results immediately; large ones return a task_id to poll with get_task_status."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text to analyze (plain text)"),
		),
		mcp.WithString("force_mode",
			mcp.Description("Force processing mode: sync or async (default: size-based)"),
		),
	)
}

// createAnalyzeURLTool returns the analyze_url tool definition
func createAnalyzeURLTool() mcp.Tool {
	return mcp.NewTool("analyze_url",
		mcp.WithDescription("Fetch a document from a URL and analyze its legal citations"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("HTTP or HTTPS URL of the document"),
		),
		mcp.WithString("force_mode",
			mcp.Description("Force processing mode: sync or async (default: size-based)"),
		),
	)
}

// createGetTaskStatusTool returns the get_task_status tool definition
func createGetTaskStatusTool() mcp.Tool {
	return mcp.NewTool("get_task_status",
		mcp.WithDescription("Check the progress of a queued analysis task"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID returned by analyze_text or analyze_url"),
		),
	)
}

// createGetResultTool returns the get_result tool definition
func createGetResultTool() mcp.Tool {
	return mcp.NewTool("get_result",
		mcp.WithDescription("Retrieve a finished analysis result with all citations and clusters"),
		mcp.WithString("result_id",
			mcp.Required(),
			mcp.Description("Result ID from a finished task (see get_task_status)"),
		),
	)
}
