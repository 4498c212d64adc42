package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// chatHandler answers one customer message.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	req, err := decodeChatRequest(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		slog.Warn("Server.chatHandler: failed to decode request", "error", err)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONResponse(w, http.StatusRequestEntityTooLarge, models.Error(msgBodyTooLarge))
		case errors.Is(err, errNoBody):
			writeJSONResponse(w, http.StatusBadRequest, models.Error(msgNoJSON))
		default:
			writeJSONResponse(w, http.StatusBadRequest, models.Error(msgInvalidJSON))
		}
		return
	}
	slog.Debug("Server.chatHandler: parsed request",
		"session_id", req.SessionID, "message_len", len(req.Message), "phone_supplied", req.PhoneNumber != "")

	resp, err := s.chat.Process(r.Context(), req)
	if err != nil {
		status, body := errorResponse(err, s.chat.Model())
		if status >= http.StatusInternalServerError {
			slog.Error("Server.chatHandler: chat failed", "error", err, "status", status)
		} else {
			slog.Warn("Server.chatHandler: invalid chat request", "error", err)
		}
		writeJSONResponse(w, status, body)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

var errNoBody = errors.New("request body is empty")

// decodeChatRequest reads a single JSON object from a size-limited body.
func decodeChatRequest(w http.ResponseWriter, r *http.Request, limit int64) (models.ChatRequest, error) {
	var req models.ChatRequest
	if r.Body == nil {
		return req, errors.Join(models.ErrInvalidJSON, errNoBody)
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.Join(models.ErrInvalidJSON, errNoBody)
		}
		return req, errors.Join(models.ErrInvalidJSON, err)
	}
	if dec.More() {
		return req, errors.Join(models.ErrInvalidJSON, errors.New("unexpected data after JSON object"))
	}
	return req, nil
}

// healthHandler reports liveness and configuration without side effects.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	resp := models.HealthResponse{
		Status:       models.HealthStatusOK,
		APIKeyLoaded: s.chat.Configured(),
		Model:        s.chat.Model(),
	}
	if s.orders != nil {
		resp.OrdersLoaded = s.orders.Len()
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// sessionHandler clears the conversation history of one session.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w, http.MethodDelete)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" || len(id) > models.MaxSessionIDLength {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid session id"))
		return
	}
	if s.sessions == nil || !s.sessions.Clear(id) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	slog.Info("Server.sessionHandler: session cleared", "session_id", id)
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{"session_id": id, "cleared": true})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.notFoundHandler: no route", "method", r.Method, "path", r.URL.Path)
	writeJSONResponse(w, http.StatusNotFound, models.Error(msgNotFound))
}
