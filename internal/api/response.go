// Package api provides HTTP response utilities for SupportPipe.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/models"
)

// ModelSuggestion is attached to every provider failure.
const ModelSuggestion = `The model ID may be incorrect, or you may not have access to this model. Try using the base model "gpt-4o-mini-2024-07-18" instead.`

// Client-facing error messages.
const (
	msgInternal         = "Internal server error"
	msgNotConfigured    = "Service is not configured"
	msgInvalidJSON      = "Invalid JSON format"
	msgNoJSON           = "No JSON data received"
	msgMessageRequired  = "Message is required"
	msgNotFound         = "Endpoint not found"
	msgMethodNotAllowed = "Method not allowed"
	msgBodyTooLarge     = "Request body too large"
)

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

// init validates that our fallback responses can be marshaled
func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error(msgInternal))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal first so a failure can still change the status code
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeMethodNotAllowed answers 405 with the permitted methods in the Allow header.
func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error(msgMethodNotAllowed))
}

// errorResponse maps an error from the chat flow to a status code and a client-safe body.
func errorResponse(err error, model string) (int, models.ErrorResponse) {
	var perr *genai.ProviderError
	switch {
	case errors.Is(err, models.ErrEmptyMessage):
		return http.StatusBadRequest, models.Error(msgMessageRequired)
	case errors.Is(err, models.ErrInvalidJSON):
		return http.StatusBadRequest, models.Error(msgInvalidJSON)
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, models.Error(err.Error())
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusInternalServerError, models.Error(msgNotConfigured)
	case errors.As(err, &perr):
		msg := perr.Message
		if msg == "" {
			msg = perr.Error()
		}
		if perr.Model != "" {
			model = perr.Model
		}
		return http.StatusInternalServerError, models.ErrorResponse{
			Error:      msg,
			ErrorType:  perr.Type,
			Model:      model,
			Suggestion: ModelSuggestion,
		}
	default:
		return http.StatusInternalServerError, models.Error(msgInternal)
	}
}
