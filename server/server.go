// Package server exposes a chatbot.Chatbot over HTTP.
//
//	POST /v1/chat                     {"session_id": "...", "message": "..."}
//	POST /v1/feedback                 {"session_id": "...", "message_id": "...", "feedback": "helpful"}
//	POST /v1/sessions/{id}/reset
//	GET  /v1/sessions/{id}/history
//	GET  /v1/stats
//	GET  /healthz
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/smallnest/faqgraph/chatbot"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/store"
)

const maxBodyBytes = 64 << 10

// Server holds the HTTP handlers.
type Server struct {
	bot     *chatbot.Chatbot
	metrics *rag.Metrics
	logger  log.Logger
	started time.Time
}

// New creates a Server. metrics may be nil.
func New(bot *chatbot.Chatbot, metrics *rag.Metrics, logger log.Logger) *Server {
	return &Server{
		bot:     bot,
		metrics: metrics,
		logger:  log.OrDefault(logger),
		started: time.Now(),
	}
}

// Router returns the routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/feedback", s.handleFeedback).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Feedback  string `json:"feedback"`
}

// HistoryResponse is the body of GET /v1/sessions/{id}/history.
type HistoryResponse struct {
	SessionID string       `json:"session_id"`
	Turns     []store.Turn `json:"turns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.bot.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.MessageID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id and message_id are required"})
		return
	}
	if err := s.bot.Feedback(r.Context(), req.SessionID, req.MessageID, req.Feedback); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Reset(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	turns, err := s.bot.History(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, Turns: turns})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var snap rag.MetricsSnapshot
	if s.metrics != nil {
		snap = s.metrics.Snapshot()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"mode":   s.bot.Mode(),
		"engine": snap,
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": s.bot.Mode()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chatbot.ErrEmptyMessage), errors.Is(err, chatbot.ErrInvalidFeedback):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrTurnNotFound), errors.Is(err, store.ErrSessionNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
		s.writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response: %v", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
