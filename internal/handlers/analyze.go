// -----------------------------------------------------------------------
// Analyze Handler - Document intake, sync/async split, task dispatch
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// AnalyzeRequest is the JSON body for text and url input modes.
type AnalyzeRequest struct {
	Type      string `json:"type" validate:"required,oneof=text url"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	ForceMode string `json:"force_mode,omitempty" validate:"omitempty,oneof=sync async"`
}

// AnalyzeHandler accepts documents as raw text, file uploads, or URLs.
// Input is decoded to cleaned text here, before the sync/async decision,
// so decode failures always surface to the caller and queued payloads
// carry text, never bytes.
type AnalyzeHandler struct {
	config    *common.Config
	pipeline  interfaces.Pipeline
	extractor interfaces.DocumentExtractor
	fetcher   interfaces.DocumentFetcher
	tasks     interfaces.TaskStorage
	results   interfaces.ResultStorage
	queue     interfaces.QueueManager
	logger    arbor.ILogger
	validate  *validator.Validate
}

// NewAnalyzeHandler creates the analyze endpoint handler.
func NewAnalyzeHandler(config *common.Config, pl interfaces.Pipeline, ext interfaces.DocumentExtractor, fetcher interfaces.DocumentFetcher, tasks interfaces.TaskStorage, results interfaces.ResultStorage, queue interfaces.QueueManager, logger arbor.ILogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		config:    config,
		pipeline:  pl,
		extractor: ext,
		fetcher:   fetcher,
		tasks:     tasks,
		results:   results,
		queue:     queue,
		logger:    logger,
		validate:  validator.New(),
	}
}

// decodedInput is the cleaned text plus provenance, ready for the pipeline.
type decodedInput struct {
	text       string
	sourceKind models.SourceKind
	sourceName string
	forceMode  string
}

// Analyze handles POST /analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadBytes)

	input, err := h.decodeRequest(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if h.runSync(input) {
		h.analyzeInline(w, r, input)
		return
	}
	h.enqueue(w, r, input)
}

// runSync applies the mode decision: request force_mode, then configured
// force_mode, then the size rule.
func (h *AnalyzeHandler) runSync(input *decodedInput) bool {
	mode := input.forceMode
	if mode == "" {
		mode = h.config.Pipeline.ForceMode
	}
	switch mode {
	case "sync":
		return true
	case "async":
		return false
	}
	return len(input.text) < h.config.Pipeline.SyncThresholdBytes
}

func (h *AnalyzeHandler) analyzeInline(w http.ResponseWriter, r *http.Request, input *decodedInput) {
	result, err := h.pipeline.Analyze(r.Context(), input.text, interfaces.AnalyzeOptions{
		SourceKind: input.sourceKind,
		SourceName: input.sourceName,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	// Stored so /result/{id} and /report/{id} serve inline runs too.
	if err := h.results.SaveResult(r.Context(), result); err != nil {
		h.logger.Error().Err(err).Str("result_id", result.ID).Msg("Failed to store inline result")
	}

	h.logger.Info().
		Str("result_id", result.ID).
		Int("citations", result.Stats.CitationsTotal).
		Msg("Inline analysis complete")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"mode":   "immediate",
		"result": result,
	})
}

func (h *AnalyzeHandler) enqueue(w http.ResponseWriter, r *http.Request, input *decodedInput) {
	taskID := common.NewTaskID()
	task := models.NewTask(taskID, input.sourceKind, input.sourceName, len(input.text))
	if err := h.tasks.SaveTask(r.Context(), task); err != nil {
		WriteError(w, models.NewAppError(models.ErrCodeInternal, "failed to create task", err))
		return
	}

	msg, err := models.NewAnalysisMessage(taskID, models.AnalysisPayload{
		Text:       input.text,
		SourceKind: input.sourceKind,
		SourceName: input.sourceName,
	})
	if err != nil {
		WriteError(w, models.NewAppError(models.ErrCodeInternal, "failed to build queue message", err))
		return
	}
	if err := h.queue.Enqueue(r.Context(), msg); err != nil {
		WriteError(w, models.NewAppError(models.ErrCodeInternal, "failed to enqueue task", err))
		return
	}

	h.logger.Info().
		Str("task_id", taskID).
		Str("source_kind", string(input.sourceKind)).
		Int("text_bytes", len(input.text)).
		Msg("Analysis task queued")

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"mode":    "queued",
		"task_id": taskID,
	})
}

// decodeRequest resolves the three input modes to cleaned text.
func (h *AnalyzeHandler) decodeRequest(r *http.Request) (*decodedInput, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if strings.HasPrefix(mediaType, "multipart/") {
		return h.decodeMultipart(r)
	}
	return h.decodeJSON(r)
}

func (h *AnalyzeHandler) decodeJSON(r *http.Request) (*decodedInput, error) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			return nil, models.NewAppError(models.ErrCodeInputTooLarge, "request body exceeds upload limit", err)
		}
		return nil, models.NewAppError(models.ErrCodeInputError, "malformed JSON body", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return nil, models.NewAppError(models.ErrCodeInputError, "invalid request: "+err.Error(), nil)
	}

	switch req.Type {
	case "text":
		if strings.TrimSpace(req.Text) == "" {
			return nil, models.NewInputError("text input is empty")
		}
		text, err := h.extractor.ExtractText(r.Context(), []byte(req.Text), "text/plain")
		if err != nil {
			return nil, err
		}
		return &decodedInput{
			text:       text,
			sourceKind: models.SourceKindText,
			forceMode:  req.ForceMode,
		}, nil

	case "url":
		parsed, err := common.ValidateSourceURL(req.URL, h.config.AllowTestURLs())
		if err != nil {
			return nil, models.NewAppError(models.ErrCodeInputError, err.Error(), nil)
		}
		data, mimeType, err := h.fetcher.Fetch(r.Context(), parsed.String())
		if err != nil {
			return nil, err
		}
		text, err := h.extractor.ExtractText(r.Context(), data, mimeType)
		if err != nil {
			return nil, err
		}
		return &decodedInput{
			text:       text,
			sourceKind: models.SourceKindURL,
			sourceName: parsed.String(),
			forceMode:  req.ForceMode,
		}, nil
	}

	return nil, models.NewInputError(fmt.Sprintf("unknown input type %q", req.Type))
}

func (h *AnalyzeHandler) decodeMultipart(r *http.Request) (*decodedInput, error) {
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadBytes); err != nil {
		if isBodyTooLarge(err) {
			return nil, models.NewAppError(models.ErrCodeInputTooLarge, "upload exceeds size limit", err)
		}
		return nil, models.NewAppError(models.ErrCodeInputError, "malformed multipart body", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, models.NewInputError("multipart request requires a 'file' field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, models.NewAppError(models.ErrCodeInputTooLarge, "upload exceeds size limit", err)
		}
		return nil, models.NewAppError(models.ErrCodeInputError, "failed to read upload", err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	text, err := h.extractor.ExtractText(r.Context(), data, mimeType)
	if err != nil {
		return nil, err
	}

	forceMode := r.FormValue("force_mode")
	if forceMode != "" && forceMode != "sync" && forceMode != "async" {
		return nil, models.NewInputError(fmt.Sprintf("invalid force_mode %q", forceMode))
	}

	return &decodedInput{
		text:       text,
		sourceKind: models.SourceKindFile,
		sourceName: header.Filename,
		forceMode:  forceMode,
	}, nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
