// Package httpapi exposes the readiness probe, the document catalog, and
// a chat endpoint that shares the bot's orchestrator entry point.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
	"ragbot/internal/rag"
)

type Chatter interface {
	Respond(ctx context.Context, conversationID, text string) (string, []models.Passage, error)
	Reset(conversationID string)
}

type DocumentStore interface {
	List() []models.DocumentSummary
	Delete(id string) error
}

type HealthReporter interface {
	Snapshot() map[string]bool
	Healthy() bool
}

type Server struct {
	chat   Chatter
	docs   DocumentStore
	health HealthReporter
}

// New builds the HTTP server for addr.
func New(addr string, chat Chatter, docs DocumentStore, health HealthReporter) *http.Server {
	s := &Server{chat: chat, docs: docs, health: health}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat/reset", s.handleReset)

	return &http.Server{Addr: addr, Handler: mux}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !s.health.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy":  s.health.Healthy(),
		"services": s.health.Snapshot(),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.docs.List()})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.docs.Delete(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	Reply   string           `json:"reply"`
	Sources []models.Passage `json:"sources"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = "dashboard"
	}

	reply, passages, err := s.chat.Respond(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyMessage) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message must not be empty"})
			return
		}
		log.Error().Err(err).Msg("chat request failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": models.ApologeticReply})
		return
	}
	if passages == nil {
		passages = []models.Passage{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, Sources: passages})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConversationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversation_id is required"})
		return
	}
	s.chat.Reset(req.ConversationID)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
