package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Document analysis
	mux.HandleFunc("/analyze", s.app.AnalyzeHandler.Analyze) // POST - text, URL, or file upload

	// Task lifecycle
	mux.HandleFunc("/task_status/", s.app.TaskHandler.Status) // GET /task_status/{id}
	mux.HandleFunc("/cancel/", s.app.TaskHandler.Cancel)      // POST /cancel/{id}
	mux.HandleFunc("/task_logs/", s.app.TaskHandler.Logs)     // GET /task_logs/{id}

	// Results and reports
	mux.HandleFunc("/result/", s.app.ResultHandler.Get)    // GET /result/{id}
	mux.HandleFunc("/report/", s.app.ResultHandler.Report) // GET /report/{id} - PDF

	// Progress event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	mux.HandleFunc("/health", s.app.HealthHandler.Health)

	return mux
}
