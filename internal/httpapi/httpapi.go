// Package httpapi exposes the chat engine over HTTP for the bot frontend.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/astanafx/fxbot/internal/registry"
)

// Server serves the chat endpoints backed by a session registry.
type Server struct {
	registry *registry.Registry
	mux      *http.ServeMux
}

// NewServer creates the HTTP surface over the given registry.
func NewServer(reg *registry.Registry) *Server {
	s := &Server{registry: reg, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /chat/message", s.handleMessage)
	s.mux.HandleFunc("POST /chat/clear", s.handleClear)
	s.mux.HandleFunc("GET /chat/stats", s.handleStats)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type messageRequest struct {
	UserID   int64  `json:"user_id"`
	Message  string `json:"message"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
}

type messageResponse struct {
	Response string `json:"response"`
	Role     string `json:"role"`
	Stats    any    `json:"stats"`
}

type clearRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type clearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == 0 || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and message are required"})
		return
	}

	log.Printf("[server] req=%s processing message user=%d role=%q provider=%q",
		reqID, req.UserID, req.Role, orAuto(req.Provider))

	reply, usedRole, stats, err := s.registry.Process(r.Context(), req.UserID, req.Message, req.Role, req.Provider)
	if err != nil {
		log.Printf("[server] req=%s failed user=%d: %v", reqID, req.UserID, err)
		status := http.StatusInternalServerError
		if errors.Is(err, registry.ErrAllProvidersExhausted) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	log.Printf("[server] req=%s answered user=%d role=%s provider=%s", reqID, req.UserID, usedRole, stats.Provider)
	writeJSON(w, http.StatusOK, messageResponse{Response: reply, Role: usedRole, Stats: stats})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	ok := s.registry.Clear(req.UserID, req.Role)
	msg := fmt.Sprintf("history for user %d not found", req.UserID)
	if ok {
		if req.Role != "" {
			msg = fmt.Sprintf("history for user %d and role %s cleared", req.UserID, req.Role)
		} else {
			msg = fmt.Sprintf("history for user %d cleared", req.UserID)
		}
	}
	writeJSON(w, http.StatusOK, clearResponse{Success: ok, Message: msg})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id query parameter is required"})
		return
	}

	stats := s.registry.Stats(userID, r.URL.Query().Get("role"))
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[server] failed to encode response: %v", err)
	}
}

func orAuto(provider string) string {
	if provider == "" {
		return "auto"
	}
	return provider
}
