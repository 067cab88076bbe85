package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
	"github.com/ternarybob/casestrainer/internal/queue"
	"github.com/ternarybob/casestrainer/internal/reports"
	storage "github.com/ternarybob/casestrainer/internal/storage/badger"
)

type stubPipeline struct {
	err      error
	lastOpts interfaces.AnalyzeOptions
}

func (s *stubPipeline) Analyze(ctx context.Context, text string, opts interfaces.AnalyzeOptions) (*models.AnalysisResult, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	result := models.NewAnalysisResult(common.NewResultID(), opts.TaskID, time.Hour)
	result.SourceKind = opts.SourceKind
	result.SourceName = opts.SourceName
	result.Citations = []models.Citation{{Text: "198 P.3d 1021", Verified: true, ClusterID: -1}}
	result.ComputeStats(10, false)
	return result, nil
}

type stubExtractor struct{}

func (s *stubExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return strings.TrimSpace(string(data)), nil
}

func (s *stubExtractor) SupportedTypes() []string {
	return []string{"text/plain"}
}

type stubFetcher struct {
	body string
	err  error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return []byte(s.body), "text/plain", nil
}

type handlerHarness struct {
	cfg      *common.Config
	storage  interfaces.StorageManager
	queue    interfaces.QueueManager
	pipeline *stubPipeline
	fetcher  *stubFetcher

	analyze *AnalyzeHandler
	task    *TaskHandler
	result  *ResultHandler
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()
	logger := common.GetLogger()
	cfg := common.NewDefaultConfig()

	mgr, err := storage.NewManager(logger, &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "badger")})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	q, err := queue.NewManager(mgr.DB(), "test", time.Minute, 3, logger)
	require.NoError(t, err)

	pl := &stubPipeline{}
	fetcher := &stubFetcher{body: "See Hale v. Wellpinit, 198 P.3d 1021 (2009)."}

	return &handlerHarness{
		cfg:      cfg,
		storage:  mgr,
		queue:    q,
		pipeline: pl,
		fetcher:  fetcher,
		analyze:  NewAnalyzeHandler(cfg, pl, &stubExtractor{}, fetcher, mgr.TaskStorage(), mgr.ResultStorage(), q, logger),
		task:     NewTaskHandler(mgr.TaskStorage(), mgr.LogStorage(), logger),
		result:   NewResultHandler(mgr.ResultStorage(), reports.NewService(logger), logger),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyze_SmallTextRunsInline(t *testing.T) {
	h := newHandlerHarness(t)

	rec := postJSON(t, h.analyze.Analyze, "/analyze", AnalyzeRequest{
		Type: "text",
		Text: "See Hale v. Wellpinit, 198 P.3d 1021 (2009).",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "immediate", body["mode"])

	result, ok := body["result"].(map[string]interface{})
	require.True(t, ok, "immediate response must embed the result")
	resultID, _ := result["result_id"].(string)
	require.NotEmpty(t, resultID)

	// Inline results are persisted so /result serves them too.
	stored, err := h.storage.ResultStorage().GetResult(context.Background(), resultID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stats.CitationsTotal)
}

func TestAnalyze_LargeTextIsQueued(t *testing.T) {
	h := newHandlerHarness(t)
	h.cfg.Pipeline.SyncThresholdBytes = 10

	rec := postJSON(t, h.analyze.Analyze, "/analyze", AnalyzeRequest{
		Type: "text",
		Text: "a document comfortably past the sync threshold",
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "queued", body["mode"])
	taskID, _ := body["task_id"].(string)
	require.NotEmpty(t, taskID)

	task, err := h.storage.TaskStorage().GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusQueued, task.Status)

	n, err := h.queue.QueueLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAnalyze_ForceModeOverridesSizeRule(t *testing.T) {
	h := newHandlerHarness(t)
	h.cfg.Pipeline.SyncThresholdBytes = 10

	rec := postJSON(t, h.analyze.Analyze, "/analyze", AnalyzeRequest{
		Type:      "text",
		Text:      "a document comfortably past the sync threshold",
		ForceMode: "sync",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "immediate", decodeBody(t, rec)["mode"])

	rec = postJSON(t, h.analyze.Analyze, "/analyze", AnalyzeRequest{
		Type:      "text",
		Text:      "tiny",
		ForceMode: "async",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", decodeBody(t, rec)["mode"])
}

func TestAnalyze_URLModeFetchesDocument(t *testing.T) {
	h := newHandlerHarness(t)

	rec := postJSON(t, h.analyze.Analyze, "/analyze", AnalyzeRequest{
		Type: "url",
		URL:  "http://localhost/briefs/hale.txt",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "immediate", decodeBody(t, rec)["mode"])
	assert.Equal(t, models.SourceKindURL, h.pipeline.lastOpts.SourceKind)
	assert.Equal(t, "http://localhost/briefs/hale.txt", h.pipeline.lastOpts.SourceName)
}

func TestAnalyze_RejectsBadInput(t *testing.T) {
	h := newHandlerHarness(t)

	tests := []struct {
		name string
		req  AnalyzeRequest
	}{
		{"empty text", AnalyzeRequest{Type: "text", Text: "   "}},
		{"unknown type", AnalyzeRequest{Type: "pdf", Text: "x"}},
		{"bad force mode", AnalyzeRequest{Type: "text", Text: "x", ForceMode: "later"}},
		{"invalid url", AnalyzeRequest{Type: "url", URL: "ftp://example.com/doc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.analyze.Analyze, "/analyze", tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "input_error", decodeBody(t, rec)["code"])
		})
	}
}

func TestAnalyze_MalformedJSON(t *testing.T) {
	h := newHandlerHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.analyze.Analyze(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "input_error", decodeBody(t, rec)["code"])
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	h := newHandlerHarness(t)
	h.cfg.Server.MaxUploadBytes = 64

	rec := postJSON(t, h.analyze.Analyze, "/analyze", AnalyzeRequest{
		Type: "text",
		Text: strings.Repeat("a long brief ", 100),
	})

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "input_too_large", decodeBody(t, rec)["code"])
}

func TestAnalyze_MultipartUpload(t *testing.T) {
	h := newHandlerHarness(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "brief.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("See Hale v. Wellpinit, 198 P.3d 1021 (2009)."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.analyze.Analyze(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "immediate", decodeBody(t, rec)["mode"])
	assert.Equal(t, models.SourceKindFile, h.pipeline.lastOpts.SourceKind)
	assert.Equal(t, "brief.txt", h.pipeline.lastOpts.SourceName)
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	h := newHandlerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	rec := httptest.NewRecorder()
	h.analyze.Analyze(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestTaskStatus_ReturnsTaskFields(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()

	task := models.NewTask("task_status", models.SourceKindText, "", 64)
	task.Status = models.TaskStatusStarted
	task.Phase = models.PhaseVerifying
	task.Percent = 80
	require.NoError(t, h.storage.TaskStorage().SaveTask(ctx, task))

	req := httptest.NewRequest(http.MethodGet, "/task_status/task_status", nil)
	rec := httptest.NewRecorder()
	h.task.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "task_status", body["task_id"])
	assert.Equal(t, string(models.TaskStatusStarted), body["status"])
	assert.Equal(t, string(models.PhaseVerifying), body["phase"])
	assert.Equal(t, float64(80), body["percent"])
}

func TestTaskStatus_UnknownTask(t *testing.T) {
	h := newHandlerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/task_status/task_missing", nil)
	rec := httptest.NewRecorder()
	h.task.Status(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody(t, rec)["code"])
}

func TestCancel_SetsFlag(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()

	task := models.NewTask("task_cancel", models.SourceKindText, "", 64)
	require.NoError(t, h.storage.TaskStorage().SaveTask(ctx, task))

	req := httptest.NewRequest(http.MethodPost, "/cancel/task_cancel", nil)
	rec := httptest.NewRecorder()
	h.task.Cancel(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "cancel_requested", decodeBody(t, rec)["status"])

	stored, err := h.storage.TaskStorage().GetTask(ctx, "task_cancel")
	require.NoError(t, err)
	assert.True(t, stored.CancelRequested)
}

func TestCancel_TerminalTaskConflicts(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()

	task := models.NewTask("task_done", models.SourceKindText, "", 64)
	task.Status = models.TaskStatusFinished
	require.NoError(t, h.storage.TaskStorage().SaveTask(ctx, task))

	req := httptest.NewRequest(http.MethodPost, "/cancel/task_done", nil)
	rec := httptest.NewRecorder()
	h.task.Cancel(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeBody(t, rec)["code"])
}

func TestTaskLogs_ReturnsEntries(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()

	task := models.NewTask("task_logs", models.SourceKindText, "", 64)
	require.NoError(t, h.storage.TaskStorage().SaveTask(ctx, task))
	require.NoError(t, h.storage.LogStorage().AppendLogs(ctx, "task_logs", []models.LogEntry{
		{Level: "info", Message: "citations extracted count=4"},
	}))

	req := httptest.NewRequest(http.MethodGet, "/task_logs/task_logs", nil)
	rec := httptest.NewRecorder()
	h.task.Logs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	logs, ok := body["logs"].([]interface{})
	require.True(t, ok)
	require.Len(t, logs, 1)
}

func TestResult_RoundTripAndExpiry(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()

	result := models.NewAnalysisResult("result_rt", "task_rt", time.Hour)
	result.ComputeStats(5, false)
	require.NoError(t, h.storage.ResultStorage().SaveResult(ctx, result))

	req := httptest.NewRequest(http.MethodGet, "/result/result_rt", nil)
	rec := httptest.NewRecorder()
	h.result.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "result_rt", decodeBody(t, rec)["result_id"])

	req = httptest.NewRequest(http.MethodGet, "/result/result_missing", nil)
	rec = httptest.NewRecorder()
	h.result.Get(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport_RendersPDF(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()

	result := models.NewAnalysisResult("result_pdf", "task_pdf", time.Hour)
	result.Citations = []models.Citation{{Text: "198 P.3d 1021", Verified: true, ClusterID: -1}}
	result.ComputeStats(5, false)
	require.NoError(t, h.storage.ResultStorage().SaveResult(ctx, result))

	req := httptest.NewRequest(http.MethodGet, "/report/result_pdf", nil)
	rec := httptest.NewRecorder()
	h.result.Report(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}
