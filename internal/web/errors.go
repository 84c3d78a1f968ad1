package web

// errors.go turns handler errors into responses.
//
// Every error is mapped through core.MapError: the technical error is logged
// with the request id, and the client gets the catalogue message, action and
// code, as JSON for API clients or as an HTML alert for browsers.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/logging"
	"github.com/JonMunkholm/listcutter/internal/source"
	"github.com/JonMunkholm/listcutter/internal/store"
	"github.com/JonMunkholm/listcutter/internal/web/templates"
)

var (
	errNoFile             = errors.New("no file provided")
	errInvalidRequest     = errors.New("invalid request")
	errSavedFilesDisabled = errors.New("saved files are disabled")
	errRateLimited        = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var inputErr *core.InputError
	var budgetErr *core.BudgetExceededError

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &budgetErr):
		switch budgetErr.Kind {
		case core.BudgetSize:
			return http.StatusRequestEntityTooLarge
		case core.BudgetTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusUnprocessableEntity
		}
	case errors.Is(err, errNoFile), errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrFileNotFound), errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errSavedFilesDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, ErrTooManyAnalyses):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if wantsHTML(r) {
		respondErrorHTML(w, r, userMsg, status)
		return
	}
	respondErrorJSON(w, userMsg, status)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML renders the alert alone for HTMX requests and inside the
// page layout otherwise.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	alert := templates.ErrorAlert(msg.Message, msg.Action, msg.Code)
	if isHTMX(r) {
		alert.Render(r.Context(), w)
		return
	}
	templates.Page("Error", alert).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsHTML reports whether the client asked for HTML: browsers submitting
// the landing page forms, or HTMX. API clients get JSON by default.
func wantsHTML(r *http.Request) bool {
	if isHTMX(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
