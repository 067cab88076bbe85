package handlers

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// ResultHandler serves stored analysis results and their PDF reports.
type ResultHandler struct {
	results interfaces.ResultStorage
	reports interfaces.ReportService
	logger  arbor.ILogger
}

// NewResultHandler creates the result endpoints handler.
func NewResultHandler(results interfaces.ResultStorage, reports interfaces.ReportService, logger arbor.ILogger) *ResultHandler {
	return &ResultHandler{results: results, reports: reports, logger: logger}
}

// Get handles GET /result/{result_id}. Expired results read as 404.
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	resultID := pathParam(r.URL.Path, "/result/")
	if resultID == "" {
		WriteError(w, models.NewInputError("result id is required"))
		return
	}

	result, err := h.results.GetResult(r.Context(), resultID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// Report handles GET /report/{result_id}, rendering the result as PDF.
func (h *ResultHandler) Report(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	resultID := pathParam(r.URL.Path, "/report/")
	if resultID == "" {
		WriteError(w, models.NewInputError("result id is required"))
		return
	}

	result, err := h.results.GetResult(r.Context(), resultID)
	if err != nil {
		WriteError(w, err)
		return
	}

	pdf, err := h.reports.GeneratePDF(r.Context(), result)
	if err != nil {
		WriteError(w, models.NewAppError(models.ErrCodeInternal, "failed to render report", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resultID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
