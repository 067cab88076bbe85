package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/casestrainer/internal/models"
)

// apiClient talks to a running casestrainer server. The MCP binary is a
// thin stdio front end; all analysis happens in the service.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http: &http.Client{
			// Sync-mode analysis of a long brief can take a while.
			Timeout: 3 * time.Minute,
		},
	}
}

// analyzeResponse covers both the immediate and the queued shape.
type analyzeResponse struct {
	Mode   string                 `json:"mode"`
	TaskID string                 `json:"task_id,omitempty"`
	Result *models.AnalysisResult `json:"result,omitempty"`
}

type taskStatusResponse struct {
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	Phase       string `json:"phase"`
	Percent     int    `json:"percent"`
	HeartbeatAt string `json:"heartbeat_at,omitempty"`
	ResultID    string `json:"result_id,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *apiClient) AnalyzeText(ctx context.Context, text, forceMode string) (*analyzeResponse, error) {
	payload := map[string]string{"type": "text", "text": text}
	if forceMode != "" {
		payload["force_mode"] = forceMode
	}
	var out analyzeResponse
	if err := c.post(ctx, "/analyze", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) AnalyzeURL(ctx context.Context, url, forceMode string) (*analyzeResponse, error) {
	payload := map[string]string{"type": "url", "url": url}
	if forceMode != "" {
		payload["force_mode"] = forceMode
	}
	var out analyzeResponse
	if err := c.post(ctx, "/analyze", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) TaskStatus(ctx context.Context, taskID string) (*taskStatusResponse, error) {
	var out taskStatusResponse
	if err := c.get(ctx, "/task_status/"+taskID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) GetResult(ctx context.Context, resultID string) (*models.AnalysisResult, error) {
	var out models.AnalysisResult
	if err := c.get(ctx, "/result/"+resultID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("casestrainer server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var envelope struct {
			Error apiError `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.Unmarshal(data, out)
}
