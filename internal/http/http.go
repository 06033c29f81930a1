// Package http holds response helpers and middleware shared by the handlers.
package http

import (
	"encoding/json"
	"net/http"

	applog "statementlens/internal/log"
	"statementlens/internal/templates"
)

// RenderTemplate renders a full page template with data
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, templateName string, data any) {
	if renderer == nil {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>" + templateName + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
		return
	}
	renderer.Render(w, templateName, data)
}

// ErrorResponse sends a plain-text error and logs it on the request logger
func ErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	applog.FromContext(r.Context()).Warn("error response",
		applog.FieldStatusCode, statusCode,
		applog.FieldError, message,
	)
	http.Error(w, message, statusCode)
}

// JSONError writes {"error": message} with the given status
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}
