package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/casestrainer/internal/models"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError renders any error as the standard {error, code, message}
// envelope with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	appErr := models.AsAppError(err)
	WriteJSON(w, appErr.HTTPStatus(), appErr.ToBody())
}

// pathParam returns the path segment after prefix, or "" when the path does
// not match or has extra segments.
func pathParam(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// requireMethod writes 405 and returns false when the request method does
// not match.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		WriteJSON(w, http.StatusMethodNotAllowed, models.ErrorBody{
			Error:   http.StatusText(http.StatusMethodNotAllowed),
			Code:    "method_not_allowed",
			Message: "method " + r.Method + " not allowed",
		})
		return false
	}
	return true
}
